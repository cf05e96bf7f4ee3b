package verification

// RecomputeKycStatus derives the aggregate status stored alongside a KYC
// record. KYC is the only class that can reach manual_review through the
// extraction result itself.
func RecomputeKycStatus(rec *KycRecord) OverallStatus {
	if rec == nil {
		return OverallPending
	}
	switch rec.Status {
	case KycVerified:
		return OverallComplete
	case KycManualReview:
		return OverallManualReview
	default: // pending, rejected
		return OverallPending
	}
}

// RecomputeAcademicStatus derives the aggregate status of an academic record
// from its sub-parts. class10 and class12 are the required sub-parts; higher
// education entries refine a partial status but never demote a complete one,
// since multiple degrees are expected and each append would otherwise reset
// progress for downstream consumers.
func RecomputeAcademicStatus(rec *AcademicRecord) OverallStatus {
	if rec == nil || (rec.Class10 == nil && rec.Class12 == nil && len(rec.HigherEducation) == 0) {
		return OverallPending
	}
	if rec.Class10 != nil && rec.Class10.IsVerified &&
		rec.Class12 != nil && rec.Class12.IsVerified {
		return OverallComplete
	}
	return OverallPartial
}

// RecomputeWorkStatus derives the aggregate status of a work experience
// record. A fresher declaration short-circuits to complete; otherwise all
// entries must be verified.
func RecomputeWorkStatus(rec *WorkExperienceRecord) OverallStatus {
	if rec == nil {
		return OverallPending
	}
	if rec.IsFresher {
		return OverallComplete
	}
	if len(rec.Experiences) == 0 {
		return OverallPending
	}
	for _, exp := range rec.Experiences {
		if !exp.Verified {
			return OverallPartial
		}
	}
	return OverallComplete
}
