package tuner

import (
	"fmt"
	"strings"

	"github.com/tunerd/tunerd/internal/channel"
)

// Playlist renders an extended M3U playlist over the snapshot.
func (r *Renderer) Playlist(recs []channel.Record) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for i, rec := range recs {
		fmt.Fprintf(&b, "#EXTINF:-1 tvg-id=%q tvg-name=%q tvg-logo=%q tvg-chno=%q group-title=\"Live\",%s\n",
			rec.Login, rec.DisplayName, rec.ArtURL, fmt.Sprintf("%d", i+1), rec.DisplayName)
		fmt.Fprintf(&b, "%s/stream/%s\n", r.cfg.BaseURL, rec.Login)
	}
	return b.String()
}
