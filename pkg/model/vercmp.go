package model

import "strings"

// Vercmp compares two version (or release) strings segment by segment and
// returns -1, 0 or +1.
//
// Strings are split into alternating runs of digits and letters; everything
// else separates segments. Numeric runs compare numerically with leading
// zeros ignored, alphabetic runs compare bytewise, and a numeric run beats an
// alphabetic one. A '~' sorts before anything, even the end of the string, so
// 1.0~rc1 < 1.0. A '^' sorts after the end of the string but before any other
// segment, so 1.0 < 1.0^git1 < 1.0.1. Otherwise the string with segments left
// over is the newer one.
func Vercmp(a, b string) int {
	if a == b {
		return 0
	}
	one, two := a, b
	for one != "" || two != "" {
		one = strings.TrimLeftFunc(one, isVerSeparator)
		two = strings.TrimLeftFunc(two, isVerSeparator)

		if strings.HasPrefix(one, "~") || strings.HasPrefix(two, "~") {
			if !strings.HasPrefix(one, "~") {
				return 1
			}
			if !strings.HasPrefix(two, "~") {
				return -1
			}
			one, two = one[1:], two[1:]
			continue
		}

		if strings.HasPrefix(one, "^") || strings.HasPrefix(two, "^") {
			switch {
			case one == "":
				return -1
			case two == "":
				return 1
			case !strings.HasPrefix(one, "^"):
				return 1
			case !strings.HasPrefix(two, "^"):
				return -1
			}
			one, two = one[1:], two[1:]
			continue
		}

		if one == "" || two == "" {
			break
		}

		numeric := isDigit(one[0])
		span := isAlpha
		if numeric {
			span = isDigit
		}
		seg1 := leadingRun(one, span)
		seg2 := leadingRun(two, span)
		one, two = one[len(seg1):], two[len(seg2):]

		if seg2 == "" {
			if numeric {
				return 1
			}
			return -1
		}

		if numeric {
			seg1 = strings.TrimLeft(seg1, "0")
			seg2 = strings.TrimLeft(seg2, "0")
			if len(seg1) != len(seg2) {
				if len(seg1) > len(seg2) {
					return 1
				}
				return -1
			}
		}
		if c := strings.Compare(seg1, seg2); c != 0 {
			return c
		}
	}

	switch {
	case one == "" && two == "":
		return 0
	case one == "":
		return -1
	default:
		return 1
	}
}

func leadingRun(s string, class func(byte) bool) string {
	i := 0
	for i < len(s) && class(s[i]) {
		i++
	}
	return s[:i]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isVerSeparator(r rune) bool {
	if r > 0x7f {
		return true
	}
	c := byte(r)
	return !isDigit(c) && !isAlpha(c) && c != '~' && c != '^'
}
