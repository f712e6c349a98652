package enums

import "slices"

type ComplaintStatus string

const (
	ComplaintStatusOpen       ComplaintStatus = "open"
	ComplaintStatusInProgress ComplaintStatus = "in-progress"
	ComplaintStatusResolved   ComplaintStatus = "resolved"
)

var validComplaintStatuses = []ComplaintStatus{
	ComplaintStatusOpen,
	ComplaintStatusInProgress,
	ComplaintStatusResolved,
}

func (s ComplaintStatus) String() string {
	return string(s)
}

func (s ComplaintStatus) IsValid() bool {
	return slices.Contains(validComplaintStatuses, s)
}

func ParseComplaintStatus(value string) (ComplaintStatus, error) {
	return parse(validComplaintStatuses, value, "complaint status")
}

type ComplaintPriority string

const (
	ComplaintPriorityLow    ComplaintPriority = "low"
	ComplaintPriorityMedium ComplaintPriority = "medium"
	ComplaintPriorityHigh   ComplaintPriority = "high"
)

var validComplaintPriorities = []ComplaintPriority{
	ComplaintPriorityLow,
	ComplaintPriorityMedium,
	ComplaintPriorityHigh,
}

func (p ComplaintPriority) String() string {
	return string(p)
}

func (p ComplaintPriority) IsValid() bool {
	return slices.Contains(validComplaintPriorities, p)
}

// ParseComplaintPriority defaults empty input to medium.
func ParseComplaintPriority(value string) (ComplaintPriority, error) {
	if value == "" {
		return ComplaintPriorityMedium, nil
	}
	return parse(validComplaintPriorities, value, "complaint priority")
}
