package validate

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reZIP       = regexp.MustCompile(`^[0-9]{5}(-[0-9]{4})?$`)
	reEmail     = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reFEIN      = regexp.MustCompile(`^[0-9]{2}-[0-9]{7}$`)
	reUSPhone   = regexp.MustCompile(`^\([0-9]{3}\) [0-9]{3}-[0-9]{4}$`)
	reE164      = regexp.MustCompile(`^\+[0-9]{10,15}$`)
	rePerson    = regexp.MustCompile(`^[a-zA-Z\s\-'.]+$`)
	reRouting   = regexp.MustCompile(`^[0-9]{9}$`)
	reLastFour  = regexp.MustCompile(`^[0-9]{4}$`)
	reSpaceRuns = regexp.MustCompile(`\s+`)
)

var states = map[string]bool{}

func init() {
	for _, s := range strings.Fields(`AL AK AZ AR CA CO CT DE FL GA HI ID IL IN IA KS KY LA ME MD
		MA MI MN MS MO MT NE NV NH NJ NM NY NC ND OH OK OR PA RI SC SD TN TX UT VT VA WA WV
		WI WY DC PR VI GU AS MP`) {
		states[s] = true
	}
}

var (
	typoTLDs          = []string{".con", ".cm", ".co", ".vom"}
	disposableDomains = map[string]bool{
		"tempmail.com": true, "throwaway.email": true, "guerrillamail.com": true,
		"mailinator.com": true, "10minutemail.com": true,
	}
	placeholderNames = map[string]bool{
		"test": true, "testing": true, "asdf": true, "qwerty": true,
		"xxx": true, "na": true, "n/a": true,
	}
)

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Collapse trims and folds internal whitespace runs to one space.
func Collapse(s string) string {
	return reSpaceRuns.ReplaceAllString(strings.TrimSpace(s), " ")
}

func HasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// State uppercases and checks a US state or territory code.
func State(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, states[s]
}

// ZIP accepts 5 or 9 digits and returns XXXXX or XXXXX-XXXX.
func ZIP(s string) (string, bool) {
	d := Digits(s)
	switch len(d) {
	case 5:
		return d, true
	case 9:
		return d[:5] + "-" + d[5:], true
	}
	return strings.TrimSpace(s), false
}

// FEIN accepts 9 digits and returns XX-XXXXXXX.
func FEIN(s string) (string, bool) {
	d := Digits(s)
	if len(d) != 9 {
		return strings.TrimSpace(s), false
	}
	return d[:2] + "-" + d[2:], true
}

// USPhone accepts 10 digits, or 11 with a leading 1, and returns (XXX) XXX-XXXX.
func USPhone(s string) (string, bool) {
	d := Digits(s)
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	if len(d) != 10 {
		return strings.TrimSpace(s), false
	}
	return "(" + d[:3] + ") " + d[3:6] + "-" + d[6:], true
}

// E164 returns +1XXXXXXXXXX for US numbers and +digits for 10..15 digit numbers.
func E164(s string) (string, bool) {
	d := Digits(s)
	switch {
	case len(d) == 10:
		return "+1" + d, true
	case len(d) == 11 && d[0] == '1':
		return "+" + d, true
	case len(d) >= 10 && len(d) <= 15:
		return "+" + d, true
	}
	return strings.TrimSpace(s), false
}

// SSN accepts 9 digits and returns XXX-XX-XXXX. Area 000, 666 and 900+,
// group 00 and serial 0000 are never issued.
func SSN(s string) (string, bool) {
	d := Digits(s)
	if len(d) != 9 {
		return strings.TrimSpace(s), false
	}
	area, group, serial := d[:3], d[3:5], d[5:]
	formatted := area + "-" + group + "-" + serial
	if area == "000" || area == "666" || area[0] == '9' || group == "00" || serial == "0000" {
		return formatted, false
	}
	return formatted, true
}

func Email(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 0 || len(s) > 255 {
		return s, false
	}
	if strings.Contains(s, "..") {
		return s, false
	}
	return s, reEmail.MatchString(s)
}

// BusinessEmail rejects common TLD typos and disposable providers.
func BusinessEmail(s string) bool {
	s = strings.ToLower(s)
	for _, tld := range typoTLDs {
		if strings.HasSuffix(s, tld) {
			return false
		}
	}
	at := strings.LastIndex(s, "@")
	return at < 0 || !disposableDomains[s[at+1:]]
}

func PersonName(s string) bool { return rePerson.MatchString(s) }

func Placeholder(s string) bool {
	return placeholderNames[strings.ToLower(strings.TrimSpace(s))]
}

func RoutingNumber(s string) bool { return reRouting.MatchString(s) }

func LastFour(s string) bool { return reLastFour.MatchString(s) }
