package transform

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/tidwall/gjson"
)

// Users maps an admin user record to the destination user shape. Deleted
// users are skipped.
func Users(src gjson.Result) (json.RawMessage, error) {
	id := src.Get("_id").String()
	if id == "" {
		return nil, missingField("_id")
	}
	status := strings.ToLower(src.Get("status").String())
	if src.Get("deleted").Bool() || status == "deleted" {
		return nil, Skip(fmt.Sprintf("user %s is deleted", id))
	}

	email := strings.ToLower(strings.TrimSpace(src.Get("email").String()))
	if email == "" {
		return nil, missingField("email")
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if status == "" {
		status = "active"
	}

	b := newBuilder()
	b.set("external_id", id)
	b.set("email", email)
	b.copy("username", src.Get("username"))
	b.set("display_name", displayName(src))
	b.copy("phone", src.Get("phone"))
	b.set("vip_level", src.Get("vipLevel").Int())
	b.set("status", status)
	b.set("balance", src.Get("balance").Float())
	b.copy("created_at", src.Get("createdAt"))
	return b.bytes()
}

func displayName(src gjson.Result) string {
	first := strings.TrimSpace(src.Get("firstName").String())
	last := strings.TrimSpace(src.Get("lastName").String())
	if name := strings.TrimSpace(first + " " + last); name != "" {
		return name
	}
	if username := src.Get("username").String(); username != "" {
		return username
	}
	return src.Get("email").String()
}

// Campaigns maps a campaign. Free-form settings are carried over as metadata
// with snake_case keys.
func Campaigns(src gjson.Result) (json.RawMessage, error) {
	id := src.Get("_id").String()
	if id == "" {
		return nil, missingField("_id")
	}
	title := strings.TrimSpace(src.Get("title").String())
	if title == "" {
		return nil, missingField("title")
	}

	startsAt, err := optionalTime(src, "startDate")
	if err != nil {
		return nil, err
	}
	endsAt, err := optionalTime(src, "endDate")
	if err != nil {
		return nil, err
	}
	if !startsAt.IsZero() && !endsAt.IsZero() && endsAt.Before(startsAt) {
		return nil, fmt.Errorf("campaign %s ends before it starts", id)
	}

	b := newBuilder()
	b.set("external_id", id)
	b.set("name", title)
	b.copy("description", src.Get("description"))
	b.set("reward_amount", src.Get("reward").Float())
	if !startsAt.IsZero() {
		b.set("starts_at", startsAt.UTC().Format(time.RFC3339))
	}
	if !endsAt.IsZero() {
		b.set("ends_at", endsAt.UTC().Format(time.RFC3339))
	}
	b.set("active", src.Get("isActive").Bool())
	b.copySnake("metadata", src.Get("settings"))
	return b.bytes()
}

// Tasks maps a campaign task. The task type is normalised to snake_case.
func Tasks(src gjson.Result) (json.RawMessage, error) {
	id := src.Get("id").String()
	if id == "" {
		return nil, missingField("id")
	}
	campaignID := src.Get("campaignId").String()
	if campaignID == "" {
		return nil, missingField("campaignId")
	}
	reward := src.Get("reward")
	if reward.Exists() && reward.Type != gjson.Number {
		return nil, fmt.Errorf("reward must be a number, got %s", reward.Type)
	}

	status := src.Get("status").String()
	if status == "" {
		status = "pending"
	}

	b := newBuilder()
	b.set("external_id", id)
	b.set("campaign_id", campaignID)
	b.copy("title", src.Get("title"))
	if taskType := src.Get("type").String(); taskType != "" {
		b.set("task_type", strcase.ToSnake(taskType))
	}
	b.set("reward", reward.Float())
	b.set("status", strings.ToLower(status))
	b.copySnake("requirements", src.Get("requirements"))
	return b.bytes()
}

func optionalTime(src gjson.Result, field string) (time.Time, error) {
	v := src.Get(field)
	if !v.Exists() || v.Type == gjson.Null || v.String() == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v.String())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", field, v.String(), err)
	}
	return t, nil
}
