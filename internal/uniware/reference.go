package uniware

import (
	"fmt"
	"strings"
)

// FormatChannels renders the channel list as the system-feed reference line
// format the model uses to map channel names to ids.
func FormatChannels(channels []Channel) string {
	var b strings.Builder
	b.WriteString("Available channels (format: channelId -> Name(Code) -> Source: SourceName(Code)):")
	for _, ch := range channels {
		b.WriteString(fmt.Sprintf("\n- %d -> %s(%s) -> Source: %s(%s)",
			ch.ChannelID, ch.Name, ch.Code, ch.SourceDTO.Name, ch.SourceDTO.Code))
	}
	return b.String()
}

// FormatFacilities renders the facility list as code: displayName lines.
func FormatFacilities(facilities []Facility) string {
	var b strings.Builder
	b.WriteString("Available facilities (format: facilityCode: facility DisplayName):")
	for _, f := range facilities {
		b.WriteString(fmt.Sprintf("\n%s: %s", f.Code, f.DisplayName))
	}
	return b.String()
}

// CurrentFacility returns the facility flagged current, or the first one when
// the listing does not flag any.
func CurrentFacility(facilities []Facility) (Facility, bool) {
	for _, f := range facilities {
		if f.Current {
			return f, true
		}
	}
	if len(facilities) > 0 {
		return facilities[0], true
	}
	return Facility{}, false
}
