package directory

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PrintViews writes one line per view. outputFlags selects the columns:
// i (id), n (name), l (location), s (status), a (approved admin email),
// p (pending count), r (rejected count), c (verification code).
func PrintViews(w io.Writer, views []MosqueView, outputFlags, delimiter string) error {
	for _, v := range views {
		line, err := createLine(v, outputFlags, delimiter)
		if err != nil {
			return err
		}
		if len(line) > 0 {
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

// ValidateOutputFlags rejects unknown output flag characters.
func ValidateOutputFlags(outputFlags string) error {
	_, err := createLine(MosqueView{}, outputFlags, "")
	return err
}

func createLine(v MosqueView, outputFlags, delimiter string) (string, error) {
	var line string
	for _, f := range outputFlags {
		switch f {
		case 'i':
			line += v.ID + delimiter
		case 'n':
			line += v.Name + delimiter
		case 'l':
			line += v.Location + delimiter
		case 's':
			line += string(v.Status) + delimiter
		case 'a':
			if v.ApprovedAdmin != nil {
				line += v.ApprovedAdmin.Email
			} else {
				line += "-"
			}
			line += delimiter
		case 'p':
			line += strconv.Itoa(len(v.PendingAdmins)) + delimiter
		case 'r':
			line += strconv.Itoa(len(v.RejectedAdmins)) + delimiter
		case 'c':
			line += v.VerificationCode + delimiter
		default:
			return "", fmt.Errorf("invalid output flag %q", f)
		}
	}
	return strings.TrimSuffix(line, delimiter), nil
}

// statusAliases groups the spellings accepted for each mosque status.
var statusAliases = map[MosqueStatus][]string{
	StatusApproved: {"approved", "active", "verified"},
	StatusNoAdmin:  {"no_admin", "no-admin", "noadmin", "unassigned", "none"},
}

var statusMap map[string]MosqueStatus

func init() {
	statusMap = make(map[string]MosqueStatus)
	for unified, raws := range statusAliases {
		for _, raw := range raws {
			statusMap[raw] = unified
		}
	}
}

// ParseStatus maps a user-supplied status string to a MosqueStatus.
func ParseStatus(s string) (MosqueStatus, bool) {
	st, ok := statusMap[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}
