package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linechime/backend/internal/music"
	"github.com/linechime/backend/internal/sandbox"
)

type noteInfo struct {
	Note      music.Note `json:"note"`
	Frequency float64    `json:"frequency"`
	Length    float64    `json:"length"`
}

// GetCatalog returns everything a client needs to build its parameter panel.
func GetCatalog(c *gin.Context) {
	notes := make([]noteInfo, 0, len(music.Notes()))
	for _, n := range music.Notes() {
		f, _ := music.FrequencyOf(n)
		notes = append(notes, noteInfo{Note: n, Frequency: f, Length: music.LengthFor(f)})
	}

	chromatic, _ := music.ScaleNamed(music.DefaultScale)
	templates := []string{sandbox.CustomTemplate}
	for _, n := range chromatic.Notes {
		templates = append(templates, string(n))
	}

	c.JSON(http.StatusOK, gin.H{
		"notes":          notes,
		"scales":         music.Scales(),
		"songs":          music.Songs(),
		"line_templates": templates,
		"param_ranges":   sandbox.ParamRanges(),
		"defaults":       sandbox.DefaultParams(),
	})
}
