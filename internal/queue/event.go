package queue

// ScheduleExpiredEvent is published when the expiry sweep (or a list pass)
// removes a schedule whose window has lapsed.  It carries enough information
// for downstream consumers to log, notify, or feed analytics without
// querying the primary database.
type ScheduleExpiredEvent struct {
    ScheduleID uint64  `json:"schedule_id"`
    BuskerID   uint64  `json:"busker_id"`
    Username   string  `json:"username"`
    Genre      string  `json:"genre"`
    Lat        float64 `json:"lat"`
    Lng        float64 `json:"lng"`
    Date       string  `json:"date"`
    StartTime  string  `json:"start_time"`
    EndTime    string  `json:"end_time"`
    ExpiredAt  string  `json:"expired_at"`
}
