// Package phone validates user-entered phone numbers and reduces them to the
// canonical E.164 form used as the usage store's lookup key.
package phone

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidPhoneNumber is returned when input does not match any numbering plan.
var ErrInvalidPhoneNumber = errors.New("invalid phone number")

// Normalizer turns raw input into canonical numbers.
type Normalizer struct {
	// Strict requires the number to be assigned in the region's numbering plan.
	// Without it the number must have a full national length and match the
	// general pattern of its calling code.
	Strict bool
}

// Normalize strips formatting from rawInput, validates it against the numbering
// plan of defaultCountryCode (calling code such as "1" or "+44", or a region such
// as "US") and returns it in E.164 form, e.g. "+15551234567".
func (n Normalizer) Normalize(rawInput, defaultCountryCode string) (string, error) {
	cleaned := Clean(rawInput)
	if cleaned == "" || cleaned == "+" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidPhoneNumber)
	}

	region, err := RegionFor(defaultCountryCode)
	if err != nil {
		return "", err
	}

	num, err := phonenumbers.Parse(cleaned, region)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhoneNumber, err)
	}

	var valid bool
	if n.Strict {
		valid = phonenumbers.IsValidNumber(num)
	} else {
		valid = phonenumbers.IsPossibleNumberWithReason(num) == phonenumbers.IS_POSSIBLE &&
			matchesGeneralPattern(num)
	}
	if !valid {
		return "", fmt.Errorf("%w: %s does not match the numbering plan for %s", ErrInvalidPhoneNumber, cleaned, region)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Normalize uses the lenient default Normalizer.
func Normalize(rawInput, defaultCountryCode string) (string, error) {
	return Normalizer{}.Normalize(rawInput, defaultCountryCode)
}

// Clean removes every character except digits and a single leading '+'.
func Clean(rawInput string) string {
	s := strings.TrimSpace(rawInput)

	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RegionFor resolves a calling code or ISO region to a region understood by the
// numbering plan metadata.
func RegionFor(defaultCountryCode string) (string, error) {
	code := strings.TrimSpace(defaultCountryCode)
	code = strings.TrimPrefix(code, "+")
	if code == "" {
		return "", fmt.Errorf("%w: no default country code", ErrInvalidPhoneNumber)
	}

	if cc, err := strconv.Atoi(code); err == nil {
		region := phonenumbers.GetRegionCodeForCountryCode(cc)
		if region == "" || region == phonenumbers.UNKNOWN_REGION {
			return "", fmt.Errorf("%w: unknown country calling code %q", ErrInvalidPhoneNumber, defaultCountryCode)
		}
		return region, nil
	}

	region := strings.ToUpper(code)
	if phonenumbers.GetCountryCodeForRegion(region) == 0 {
		return "", fmt.Errorf("%w: unknown region %q", ErrInvalidPhoneNumber, defaultCountryCode)
	}
	return region, nil
}

var (
	generalPatternsOnce sync.Once
	generalPatterns     map[int32][]*regexp.Regexp
)

// matchesGeneralPattern reports whether the national significant number fits
// the general numbering pattern of any region sharing its calling code.
func matchesGeneralPattern(num *phonenumbers.PhoneNumber) bool {
	generalPatternsOnce.Do(loadGeneralPatterns)

	nsn := phonenumbers.GetNationalSignificantNumber(num)
	for _, re := range generalPatterns[num.GetCountryCode()] {
		if re.MatchString(nsn) {
			return true
		}
	}
	return false
}

func loadGeneralPatterns() {
	generalPatterns = make(map[int32][]*regexp.Regexp)

	collection, err := phonenumbers.MetadataCollection()
	if err != nil || collection == nil {
		return
	}
	for _, md := range collection.GetMetadata() {
		pattern := md.GetGeneralDesc().GetNationalNumberPattern()
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			continue
		}
		generalPatterns[md.GetCountryCode()] = append(generalPatterns[md.GetCountryCode()], re)
	}
}
