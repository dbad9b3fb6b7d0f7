package selector

import (
	"fmt"
	"time"
)

// TimeAgo renders a posting age the way the listing cards show it.
func TimeAgo(postedAt, now time.Time) string {
	secs := int64(now.Sub(postedAt) / time.Second)
	switch {
	case secs < 60:
		return "Just now"
	case secs < 3600:
		return fmt.Sprintf("%dm ago", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%dh ago", secs/3600)
	default:
		return fmt.Sprintf("%dd ago", secs/86400)
	}
}
