package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatEntryOrg renders an Entry as an Org-mode block with the structured
// facts in a PROPERTIES drawer.
func FormatEntryOrg(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** %s: %s (%s) %s\n", e.Kind, e.Account, shortID(e.OpID), strings.ToUpper(string(e.Status)))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":OP_ID: %s\n", e.OpID)
	fmt.Fprintf(&b, ":TIME: %s\n", e.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":KIND: %s\n", e.Kind)
	fmt.Fprintf(&b, ":ACCOUNT: %s\n", e.Account)
	fmt.Fprintf(&b, ":REQUESTED: %d\n", e.Requested)
	fmt.Fprintf(&b, ":AMOUNT: %d\n", e.Amount)
	fmt.Fprintf(&b, ":SHARES: %d\n", e.Shares)
	fmt.Fprintf(&b, ":TOTAL_SHARES: %d\n", e.TotalShares)
	fmt.Fprintf(&b, ":STATUS: %s\n", e.Status)
	if e.Error != "" {
		fmt.Fprintf(&b, ":ERROR: %s\n", e.Error)
	}
	b.WriteString(":END:\n")
	return b.String()
}

// FormatEntriesOrg renders multiple entries separated by blank lines.
func FormatEntriesOrg(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatEntryOrg(e))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
