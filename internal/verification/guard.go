package verification

import "fmt"

// Decision is the outcome of a submission guard check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// CanSubmit decides whether a new submission for the given document class is
// permitted, purely from the subject's persisted state. It performs no I/O;
// the pipeline runs it before paying any network cost so that one-time
// submission semantics hold even when the extraction service is slow.
//
// The returned error is reserved for invariant violations (a stored status
// outside the closed set); those are fatal, not denials.
func CanSubmit(state *SubjectState, class DocumentClass) (Decision, error) {
	switch class {
	case DocKYC:
		return canSubmitKyc(state.Kyc)
	case DocClass10:
		if state.Academic != nil && state.Academic.Class10 != nil && state.Academic.Class10.IsVerified {
			return deny("class10 already verified"), nil
		}
		return allow(), nil
	case DocClass12:
		if state.Academic == nil || state.Academic.Class10 == nil {
			return deny("class10 record must be submitted before class12"), nil
		}
		if state.Academic.Class12 != nil && state.Academic.Class12.IsVerified {
			return deny("class12 already verified"), nil
		}
		return allow(), nil
	case DocHigherEducation:
		if state.Academic == nil || state.Academic.Class10 == nil || state.Academic.Class12 == nil {
			return deny("class10 and class12 records must be submitted before higher education"), nil
		}
		// Higher education is append-only: each submission creates new
		// entries, so there is no per-item resubmission guard.
		return allow(), nil
	case DocWorkExperience:
		if state.Work != nil && state.Work.IsFresher {
			return deny("subject is marked as fresher"), nil
		}
		return allow(), nil
	default:
		return Decision{}, fmt.Errorf("unknown document class %q", class)
	}
}

func canSubmitKyc(rec *KycRecord) (Decision, error) {
	if rec == nil {
		return allow(), nil
	}
	if !rec.Status.Valid() {
		return Decision{}, fmt.Errorf("stored kyc status %q outside the closed set", rec.Status)
	}
	switch rec.Status {
	case KycVerified:
		return deny("kyc already verified"), nil
	case KycManualReview:
		return deny("kyc is under manual review"), nil
	default: // pending, rejected
		return allow(), nil
	}
}
