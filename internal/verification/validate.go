package verification

import (
	"fmt"

	"edulend/loan-portal/loan-portal-backend/internal/extraction"
)

// maxFileSize bounds each submitted document at 10 MB.
const maxFileSize = 10 << 20

var (
	// Marksheets, KYC documents and experience letters arrive as scans or
	// exports.
	marksheetTypes = map[string]bool{
		"application/pdf": true,
		"image/jpeg":      true,
		"image/png":       true,
	}

	// Graduation documents must be PDF.
	graduationTypes = map[string]bool{
		"application/pdf": true,
	}
)

// validateFiles enforces class-specific file constraints. Violations fail the
// submission before any network call is made.
func validateFiles(files []extraction.File, allowed map[string]bool, kind string) error {
	if len(files) == 0 {
		return errValidation("at least one %s file is required", kind)
	}
	for _, f := range files {
		if err := validateFile(f, allowed, kind); err != nil {
			return err
		}
	}
	return nil
}

func validateFile(f extraction.File, allowed map[string]bool, kind string) error {
	if f.Size > maxFileSize {
		return errValidation("%s file %q exceeds the 10 MB limit", kind, f.Name)
	}
	if f.Size == 0 || len(f.Data) == 0 {
		return errValidation("%s file %q is empty", kind, f.Name)
	}
	if !allowed[f.ContentType] {
		return errValidation("%s file %q has unsupported type %s", kind, f.Name, f.ContentType)
	}
	return nil
}

// validateKycDocuments checks the named identity slots. Aadhaar and PAN are
// mandatory; anything extra (a selfie) is validated but not required.
func validateKycDocuments(documents map[string]extraction.File) error {
	for _, required := range []string{SlotAadhaar, SlotPan} {
		if _, ok := documents[required]; !ok {
			return errValidation("missing required kyc document %q", required)
		}
	}
	for slot, f := range documents {
		if err := validateFile(f, marksheetTypes, fmt.Sprintf("kyc %s", slot)); err != nil {
			return err
		}
	}
	return nil
}
