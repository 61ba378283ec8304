package sri

import "strings"

// ReturnReason classifies a RETURNED submission by its message text.
// String matching against authority messages is a fragile integration
// point, so every matched substring lives here and nowhere else.
type ReturnReason int

const (
	// ReturnUnrecognized is the safe default: no auto-heal, the
	// rejection is treated as a hard business rejection.
	ReturnUnrecognized ReturnReason = iota
	// ReturnAlreadyProcessing means the document is already known to
	// the authority; equivalent to RECEIVED, go straight to polling.
	ReturnAlreadyProcessing
	// ReturnKeyRegistered means the access key collided; resend with
	// a fresh key on the same commercial sequence.
	ReturnKeyRegistered
	// ReturnSequenceRegistered means the commercial sequence itself
	// collided; allocate a new sequence before resending.
	ReturnSequenceRegistered
)

var (
	sequenceRegisteredPatterns = []string{"SECUENCIAL REGISTRADO"}
	keyRegisteredPatterns      = []string{"CLAVE ACCESO REGISTRADA"}
	alreadyProcessingPatterns  = []string{"EN PROCESAMIENTO", "EN PROCESO"}
)

// Classify inspects RETURNED messages and picks the recovery path.
// Sequence collision wins over key collision when both appear, since
// healing the sequence also regenerates the key.
func Classify(msgs []Message) ReturnReason {
	if matchAny(msgs, sequenceRegisteredPatterns) {
		return ReturnSequenceRegistered
	}
	if matchAny(msgs, keyRegisteredPatterns) {
		return ReturnKeyRegistered
	}
	if matchAny(msgs, alreadyProcessingPatterns) {
		return ReturnAlreadyProcessing
	}
	return ReturnUnrecognized
}

func matchAny(msgs []Message, patterns []string) bool {
	for _, m := range msgs {
		text := strings.ToUpper(m.Text + " " + m.AdditionalInfo)
		for _, p := range patterns {
			if strings.Contains(text, p) {
				return true
			}
		}
	}
	return false
}
