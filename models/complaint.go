package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Complaint represents a citizen-submitted civic issue report
type Complaint struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Description string  `json:"complaint"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Image       []byte  `json:"-"`
	ImageType   string  `json:"-"`
}

// HasImage reports whether a photo was uploaded with the complaint
func (c *Complaint) HasImage() bool {
	return len(c.Image) > 0
}

// LocationText is the location as given to the routing and drafting prompts
func (c *Complaint) LocationText() string {
	return fmt.Sprintf("Latitude %s, Longitude %s", formatCoordinate(c.Latitude), formatCoordinate(c.Longitude))
}

// Coordinates is the location as recorded by the workflow collaborator
func (c *Complaint) Coordinates() string {
	return fmt.Sprintf("%s, %s", formatCoordinate(c.Latitude), formatCoordinate(c.Longitude))
}

// formatCoordinate prints the shortest exact form and always keeps a decimal point,
// so 19 is written as "19.0" in the workflow spreadsheet.
func formatCoordinate(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
