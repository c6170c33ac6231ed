package hospital

// Status is a patient's position in the care pipeline.
type Status string

const (
	StatusRegistered         Status = "Registered"
	StatusWaiting            Status = "Waiting"
	StatusVitalsTaken        Status = "Vitals Taken"
	StatusPrescribed         Status = "Prescribed"
	StatusMedicinesDispensed Status = "Medicines Dispensed"
	StatusBilled             Status = "Billed"
)

// Pipeline lists the statuses in the order a patient moves through them.
var Pipeline = []Status{
	StatusRegistered,
	StatusWaiting,
	StatusVitalsTaken,
	StatusPrescribed,
	StatusMedicinesDispensed,
	StatusBilled,
}

func (s Status) index() int {
	for i, v := range Pipeline {
		if v == s {
			return i
		}
	}
	return -1
}

func (s Status) Valid() bool { return s.index() >= 0 }

// Next returns the following status. Billed is terminal.
func (s Status) Next() (Status, bool) {
	i := s.index()
	if i < 0 || i == len(Pipeline)-1 {
		return "", false
	}
	return Pipeline[i+1], true
}

// CanTransition reports whether to is exactly one step after from.
func CanTransition(from, to Status) bool {
	next, ok := from.Next()
	return ok && next == to
}
