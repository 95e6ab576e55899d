package triggers

// Status of one handler invocation.
type Status string

const (
	StatusDone    Status = "done"
	StatusIgnored Status = "ignored"
	StatusFailed  Status = "failed"
)

// Outcome is what a handler reports back. Ignored outcomes are expected
// conditions (missing document, self-action, no token); failed outcomes are
// logged with their error but never surfaced to the trigger runtime.
type Outcome struct {
	Trigger string `json:"trigger"`
	Status  Status `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
	Detail  any    `json:"detail,omitempty"`
}

func Done(detail any) Outcome {
	return Outcome{Status: StatusDone, Detail: detail}
}

func Ignored(reason string) Outcome {
	return Outcome{Status: StatusIgnored, Reason: reason}
}

func Failed(err error) Outcome {
	o := Outcome{Status: StatusFailed}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}
