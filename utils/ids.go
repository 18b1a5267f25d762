package utils

import (
	"fmt"
	"strconv"
)

// ParseID converts a Discord snowflake string to int64.
func ParseID(id string) (int64, error) {
	v, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", id, err)
	}
	return v, nil
}

// FormatID converts an int64 snowflake back to its string form.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ChannelMention renders <#id>.
func ChannelMention(id int64) string {
	return "<#" + FormatID(id) + ">"
}

// UserMention renders <@id>.
func UserMention(id int64) string {
	return "<@" + FormatID(id) + ">"
}
