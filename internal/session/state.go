package session

import "fmt"

// State is the step a user is on. The zero value is not a valid state so an
// uninitialised session is never mistaken for a fresh one.
type State int

const (
	AwaitingResume State = iota + 1
	AwaitingJobDescription
	AwaitingPayment
	Completed
)

var stateNames = map[State]string{
	AwaitingResume:         "awaiting_resume",
	AwaitingJobDescription: "awaiting_job_description",
	AwaitingPayment:        "awaiting_payment",
	Completed:              "completed",
}

func AllStates() []State {
	return []State{AwaitingResume, AwaitingJobDescription, AwaitingPayment, Completed}
}

func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid session state %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for st, name := range stateNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// ExpectedInput names what the user should send next.
func (s State) ExpectedInput() string {
	switch s {
	case AwaitingResume:
		return "a resume file (PDF, DOCX or TXT)"
	case AwaitingJobDescription:
		return "the job description as text"
	case AwaitingPayment:
		return "a payment request or your 12-digit UPI transaction reference (UTR)"
	case Completed:
		return "nothing; start again or retry with a new job description"
	}
	panic(fmt.Sprintf("unhandled session state %d", int(s)))
}

// Progress is the one-line status shown to the user.
func (s State) Progress() string {
	switch s {
	case AwaitingResume:
		return "Waiting for resume upload"
	case AwaitingJobDescription:
		return "Resume uploaded - waiting for job description"
	case AwaitingPayment:
		return "Resume optimized - waiting for payment"
	case Completed:
		return "Process completed successfully"
	}
	panic(fmt.Sprintf("unhandled session state %d", int(s)))
}

func (s State) NextSteps() string {
	switch s {
	case AwaitingResume:
		return "Upload your resume (PDF/TXT/DOCX format)"
	case AwaitingJobDescription:
		return "Send the job description as text"
	case AwaitingPayment:
		return "Request payment, complete the UPI transfer and send the 12-digit UTR"
	case Completed:
		return "Download your optimized resume or retry with a new job description"
	}
	panic(fmt.Sprintf("unhandled session state %d", int(s)))
}
