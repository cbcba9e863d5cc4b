package cli

import (
	"fmt"
	"strings"
	"time"
)

// FormatMoney formats an amount in euros with two decimals, e.g. "-€12.99".
func FormatMoney(amount float64) string {
	if amount < 0 {
		return fmt.Sprintf("-€%.2f", -amount)
	}
	return fmt.Sprintf("€%.2f", amount)
}

// FormatDuration formats d to a short human readable string
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	secs := float64(ms) / 1000
	if secs < 60 {
		return fmt.Sprintf("%.1fs", secs)
	}
	mins := int(secs / 60)
	secs = secs - float64(mins*60)
	return fmt.Sprintf("%dm%.1fs", mins, secs)
}

// MaskSecret masks a credential for display
func MaskSecret(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
