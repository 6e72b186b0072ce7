package model

// Homework review states reported by the Practicum API.
const (
	StatusApproved  = "approved"
	StatusReviewing = "reviewing"
	StatusRejected  = "rejected"
)

// Payload keys of the homework_statuses response.
const (
	KeyHomeworks    = "homeworks"
	KeyCurrentDate  = "current_date"
	KeyHomeworkName = "homework_name"
	KeyStatus       = "status"
)

var verdicts = map[string]string{
	StatusApproved:  "Review done: No points to fix",
	StatusReviewing: "Task was taken to review.",
	StatusRejected:  "Review done: There are some points to fix.",
}

// Verdict returns the human readable phrase for a review status.
func Verdict(status string) (string, bool) {
	v, ok := verdicts[status]
	return v, ok
}

// Homework is the part of a submission record the bot reports on.
type Homework struct {
	Name   string
	Status string
}
