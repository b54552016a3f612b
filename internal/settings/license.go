package settings

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	appErrors "modnotifier/internal/errors"
)

// LicenseFileName is the file the host ships the registry key in.
const LicenseFileName = "license.mjs"

var (
	// ErrWrongLicenseFile is returned when a file other than license.mjs is offered.
	ErrWrongLicenseFile = errors.New("settings: expected a license.mjs file")
	// ErrKeyNotFound is returned when the license file carries no API key.
	ErrKeyNotFound = errors.New("settings: no api key found in license file")
)

var licenseKeyPattern = regexp.MustCompile(`static LICENSE_API_KEY="([^"]*)";`)

// ExtractAPIKey pulls the registry API key out of license.mjs contents.
func ExtractAPIKey(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", appErrors.New(appErrors.CodeLicenseExtraction, "read license file", err)
	}
	match := licenseKeyPattern.FindSubmatch(data)
	if match == nil || len(match[1]) == 0 {
		return "", appErrors.New(appErrors.CodeLicenseExtraction, ErrKeyNotFound.Error(), ErrKeyNotFound)
	}
	return string(match[1]), nil
}

// ExtractAPIKeyFromFile opens a license.mjs file and extracts its API key.
func ExtractAPIKeyFromFile(path string) (string, error) {
	if filepath.Base(path) != LicenseFileName {
		return "", appErrors.New(appErrors.CodeLicenseExtraction, fmt.Sprintf("%s is not %s", filepath.Base(path), LicenseFileName), ErrWrongLicenseFile)
	}
	//nolint:gosec // G304: The user explicitly names the license file to import
	f, err := os.Open(path)
	if err != nil {
		return "", appErrors.New(appErrors.CodeLicenseExtraction, "open license file", err)
	}
	defer func() { _ = f.Close() }()
	return ExtractAPIKey(f)
}
