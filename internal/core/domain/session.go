package domain

// Session is a point-in-time copy of a session store.
type Session struct {
	Identity     *Identity     `json:"identity"`
	IsLoading    bool          `json:"is_loading"`
	LastError    string        `json:"last_error,omitempty"`
	Appointments []Appointment `json:"appointments"`
}
