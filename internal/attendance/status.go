package attendance

// Status is the attendance outcome of one student in one session.
type Status string

const (
	Present Status = "Present"
	Absent  Status = "Absent"
	OnLeave Status = "On Leave"
)

// Valid reports whether s is one of the three stored statuses.
func (s Status) Valid() bool {
	switch s {
	case Present, Absent, OnLeave:
		return true
	}
	return false
}
