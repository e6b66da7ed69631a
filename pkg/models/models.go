package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const AppName = "wallview"

var Version = "0.1.0"

// Wallpaper represents a single image entry returned by the backend.
type Wallpaper struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Img1024x768 string `json:"img_1024_768,omitempty"`
	UTag        string `json:"utag"`
	Resolution  string `json:"resolution,omitempty"`

	// Extra holds every attribute the backend sent that has no typed field.
	Extra map[string]json.RawMessage `json:"-"`
}

var knownWallpaperKeys = map[string]bool{
	"id":           true,
	"url":          true,
	"img_1024_768": true,
	"utag":         true,
	"resolution":   true,
}

func (w *Wallpaper) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out Wallpaper
	fields := map[string]*string{
		"id":           &out.ID,
		"url":          &out.URL,
		"img_1024_768": &out.Img1024x768,
		"utag":         &out.UTag,
		"resolution":   &out.Resolution,
	}
	for key, value := range raw {
		if dst, ok := fields[key]; ok {
			s, err := looseString(value)
			if err != nil {
				return fmt.Errorf("wallpaper field %q: %w", key, err)
			}
			*dst = s
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[key] = value
	}

	*w = out
	return nil
}

func (w Wallpaper) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(w.Extra)+5)
	for key, value := range w.Extra {
		if knownWallpaperKeys[key] {
			continue
		}
		out[key] = value
	}
	out["id"] = w.ID
	out["url"] = w.URL
	out["utag"] = w.UTag
	if w.Img1024x768 != "" {
		out["img_1024_768"] = w.Img1024x768
	}
	if w.Resolution != "" {
		out["resolution"] = w.Resolution
	}
	return json.Marshal(out)
}

// PreviewURL prefers the resized variant, falling back to the full image.
func (w Wallpaper) PreviewURL() string {
	if w.Img1024x768 != "" {
		return w.Img1024x768
	}
	return w.URL
}

func (w Wallpaper) Tags() []string {
	return strings.Fields(w.UTag)
}

// Count is a total the backend sends either as a number or a numeric string.
type Count struct {
	Value int
	Known bool
}

func (c *Count) UnmarshalJSON(data []byte) error {
	*c = Count{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	s, err := looseString(data)
	if err != nil {
		return err
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		// Unparseable totals are treated as unknown rather than fatal.
		return nil
	}
	if math.IsNaN(n) {
		return nil
	}
	*c = Count{Value: clampInt(n), Known: true}
	return nil
}

// clampInt converts n to a non-negative int, saturating at math.MaxInt.
func clampInt(n float64) int {
	switch {
	case n >= float64(math.MaxInt):
		return math.MaxInt
	case n <= 0:
		return 0
	}
	return int(n)
}

func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Known {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(c.Value)), nil
}

// Envelope is the uniform response shape of the list and search endpoints.
type Envelope struct {
	Errno  string      `json:"errno"`
	Errmsg string      `json:"errmsg,omitempty"`
	Data   []Wallpaper `json:"data,omitempty"`
	Total  Count       `json:"total"`
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var wire struct {
		Errno  json.RawMessage `json:"errno"`
		Errmsg string          `json:"errmsg"`
		Data   []Wallpaper     `json:"data"`
		Total  Count           `json:"total"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	errno, err := looseString(wire.Errno)
	if err != nil {
		return fmt.Errorf("errno: %w", err)
	}
	*e = Envelope{
		Errno:  errno,
		Errmsg: wire.Errmsg,
		Data:   wire.Data,
		Total:  wire.Total,
	}
	return nil
}

func (e *Envelope) OK() bool {
	return e.Errno == "0"
}

// Err returns the envelope's application-level failure, or nil when it succeeded.
func (e *Envelope) Err() error {
	if e.OK() {
		return nil
	}
	return &APIError{Errno: e.Errno, Message: e.Errmsg}
}

type Category struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order_num"`
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID    json.RawMessage `json:"id"`
		Name  string          `json:"name"`
		Order json.RawMessage `json:"order_num"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	id, err := looseInt(wire.ID)
	if err != nil {
		return fmt.Errorf("category id: %w", err)
	}
	order, _ := looseInt(wire.Order)
	*c = Category{ID: id, Name: wire.Name, Order: order}
	return nil
}

// CategoryEnvelope is the response of the category listing endpoint.
type CategoryEnvelope struct {
	Errno  json.RawMessage `json:"errno"`
	Errmsg string          `json:"errmsg,omitempty"`
	Data   []Category      `json:"data"`
}

func (e *CategoryEnvelope) Err() error {
	errno, err := looseString(e.Errno)
	if err != nil {
		return fmt.Errorf("errno: %w", err)
	}
	if errno == "0" {
		return nil
	}
	return &APIError{Errno: errno, Message: e.Errmsg}
}

// APIError is an application-level failure reported inside a 2xx response.
type APIError struct {
	Errno   string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "api error " + e.Errno
	}
	return "api error " + e.Errno + ": " + e.Message
}

// looseString accepts a JSON string, number or bool and returns its text.
func looseString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	switch raw[0] {
	case '{', '[':
		return "", fmt.Errorf("expected scalar, got %s", raw)
	}
	return string(raw), nil
}

func looseInt(raw json.RawMessage) (int, error) {
	s, err := looseString(raw)
	if err != nil {
		return 0, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
