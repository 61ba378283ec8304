package sri

import "time"

// ReceptionState is the outcome of submitting a signed document to
// the reception endpoint.
type ReceptionState int

const (
	// ReceptionUnknown means the endpoint answered with a shape or
	// status this client does not recognize.
	ReceptionUnknown ReceptionState = iota
	// ReceptionReceived means the envelope was accepted for
	// asynchronous processing.
	ReceptionReceived
	// ReceptionReturned means the document was synchronously
	// rejected with explanatory messages.
	ReceptionReturned
)

func (s ReceptionState) String() string {
	switch s {
	case ReceptionReceived:
		return "RECEIVED"
	case ReceptionReturned:
		return "RETURNED"
	}
	return "UNKNOWN"
}

// AuthorizationState is the outcome of querying the authorization
// endpoint for an access key.
type AuthorizationState int

const (
	// AuthorizationNotFound means the query returned zero documents.
	// Ambiguous: still processing, or never received.
	AuthorizationNotFound AuthorizationState = iota
	AuthorizationAuthorized
	AuthorizationNotAuthorized
	AuthorizationProcessing
)

func (s AuthorizationState) String() string {
	switch s {
	case AuthorizationAuthorized:
		return "AUTHORIZED"
	case AuthorizationNotAuthorized:
		return "NOT_AUTHORIZED"
	case AuthorizationProcessing:
		return "PROCESSING"
	}
	return "NOT_FOUND"
}

// Message is one explanatory entry from the authority.
type Message struct {
	Identifier     string
	Text           string
	AdditionalInfo string
	Type           string
}

// ReceptionResult is the typed submit outcome.
type ReceptionResult struct {
	State    ReceptionState
	Messages []Message
}

// AuthorizationResult is the typed authorization query outcome.
type AuthorizationResult struct {
	State     AuthorizationState
	Number    string
	Timestamp time.Time
	// AuthorizedXML is the authority's signed authorized copy, set
	// only when State is AuthorizationAuthorized.
	AuthorizedXML string
	Messages      []Message
}

// Texts flattens messages into display strings for persistence.
func Texts(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		s := m.Text
		if m.AdditionalInfo != "" {
			s += ": " + m.AdditionalInfo
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
