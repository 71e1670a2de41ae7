package dialogue

// PublishKind names what a Presenter was asked to do
type PublishKind string

const (
	PublishedLine    PublishKind = "line"
	PublishedOptions PublishKind = "options"
	PublishedClose   PublishKind = "close"
)

// Published is one presenter call captured by a Recorder
type Published struct {
	Kind    PublishKind `json:"kind"`
	Line    string      `json:"line,omitempty"`
	Options []Option    `json:"options,omitempty"`
}

// Recorder is a Presenter that keeps the calls it receives. The service layer
// uses it to turn one controller operation into a response and a batch of
// events
type Recorder struct {
	Calls []Published
}

var _ Presenter = (*Recorder)(nil)

func (r *Recorder) PublishLine(text string) {
	r.Calls = append(r.Calls, Published{Kind: PublishedLine, Line: text})
}

func (r *Recorder) PublishOptions(opts []Option) {
	r.Calls = append(r.Calls, Published{Kind: PublishedOptions, Options: append([]Option(nil), opts...)})
}

func (r *Recorder) CloseInteraction() {
	r.Calls = append(r.Calls, Published{Kind: PublishedClose})
}

// LastLine returns the most recently published line and whether there was one
func (r *Recorder) LastLine() (string, bool) {
	for i := len(r.Calls) - 1; i >= 0; i-- {
		if r.Calls[i].Kind == PublishedLine {
			return r.Calls[i].Line, true
		}
	}
	return "", false
}

// Count returns how many calls of kind were recorded
func (r *Recorder) Count(kind PublishKind) int {
	n := 0
	for _, c := range r.Calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Reset drops all recorded calls
func (r *Recorder) Reset() {
	r.Calls = nil
}
