package model

// Schedule is a performer's announced live-performance window at a map
// location, stored in the `schedules` table.  Date and clock times are
// Melbourne-local strings ("2006-01-02" and "15:04"); an end time that is
// lexically earlier than the start time means the window runs past
// midnight.  The owner's display fields are denormalized onto the row at
// creation so the map can render a marker card without a join, and they
// are deliberately not kept in sync with later profile edits.
//
// Fields:
//  ID          – primary key identifier.
//  Lat, Lng    – WGS-84 coordinates of the pitch.
//  StartTime   – Melbourne clock time the performance starts ("15:04").
//  EndTime     – Melbourne clock time it ends; may wrap past midnight.
//  Date        – Melbourne calendar date of the start ("2006-01-02").
//  BuskerID    – owning busker profile.
//  Username    – owner snapshot: display name.
//  MainPhoto   – owner snapshot: photo URL.
//  Genre       – owner snapshot: genre.
//  Description – owner snapshot: description.
type Schedule struct {
    ID          uint64  // schedules.id
    Lat         float64 // schedules.lat
    Lng         float64 // schedules.lng
    StartTime   string  // schedules.start_time
    EndTime     string  // schedules.end_time
    Date        string  // schedules.date
    BuskerID    uint64  // schedules.busker_id
    Username    string  // schedules.username
    MainPhoto   string  // schedules.main_photo
    Genre       string  // schedules.genre
    Description string  // schedules.description
}
