package content

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/shikshahub/portal/core"
)

type Kind string

const (
	KindLesson Kind = "lesson"
	KindVideo  Kind = "video"
	KindQuiz   Kind = "quiz"
	KindAudio  Kind = "audio"
)

type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
	StatusReview    Status = "review"
)

// Provenance distinguishes compiled-in baseline data from live remote data.
type Provenance string

const (
	ProvenanceBaseline Provenance = "baseline"
	ProvenanceRemote   Provenance = "remote"
)

// ContentItem is a unit of educational material.
type ContentItem struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Kind          Kind       `json:"type"`
	Subject       string     `json:"subject"`
	GradeLevel    string     `json:"grade"`
	Language      string     `json:"language"`
	Thumbnail     string     `json:"thumbnail"`
	SizeLabel     string     `json:"file_size"`
	CreatedAt     time.Time  `json:"upload_date"`
	ViewCount     int        `json:"views"`
	DownloadCount int        `json:"downloads"`
	Status        Status     `json:"status"`
	Provenance    Provenance `json:"provenance"`
}

const quizThumbnail = "https://images.unsplash.com/photo-1481627834876-b7833e8f5570?w=300&h=200&fit=crop"

var baselineCatalog = []ContentItem{
	{
		ID:            "baseline-1",
		Title:         "Introduction to Mathematics",
		Kind:          KindLesson,
		Subject:       "Mathematics",
		GradeLevel:    "Class 5",
		Language:      "English",
		Thumbnail:     "https://images.unsplash.com/photo-1635070041078-e363dbe005cb?w=300&h=200&fit=crop",
		SizeLabel:     "2.5 MB",
		CreatedAt:     time.Date(2025, time.January, 8, 0, 0, 0, 0, time.UTC),
		ViewCount:     245,
		DownloadCount: 89,
		Status:        StatusPublished,
		Provenance:    ProvenanceBaseline,
	},
	{
		ID:            "baseline-2",
		Title:         "गणित की मूल बातें",
		Kind:          KindVideo,
		Subject:       "Mathematics",
		GradeLevel:    "Class 5",
		Language:      "Hindi",
		Thumbnail:     "https://images.pexels.com/photos/3862130/pexels-photo-3862130.jpeg?w=300&h=200&fit=crop",
		SizeLabel:     "45.2 MB",
		CreatedAt:     time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC),
		ViewCount:     189,
		DownloadCount: 67,
		Status:        StatusPublished,
		Provenance:    ProvenanceBaseline,
	},
	{
		ID:            "baseline-3",
		Title:         "Science Experiments",
		Kind:          KindLesson,
		Subject:       "Science",
		GradeLevel:    "Class 6",
		Language:      "English",
		Thumbnail:     "https://images.pixabay.com/photo/2017/09/07/08/54/money-2724241_1280.jpg?w=300&h=200&fit=crop",
		SizeLabel:     "3.8 MB",
		CreatedAt:     time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC),
		ViewCount:     156,
		DownloadCount: 45,
		Status:        StatusDraft,
		Provenance:    ProvenanceBaseline,
	},
}

// BaselineItems returns a fresh copy of the fixed baseline catalog.
// Baseline item ids are disjoint from store-assigned ids by construction.
func BaselineItems() []ContentItem {
	items := make([]ContentItem, len(baselineCatalog))
	copy(items, baselineCatalog)
	return items
}

var nowFunc = time.Now // mockable

// quizFields is the validated shape of a remote quiz document.
type quizFields struct {
	Title     string        `json:"title" validate:"required"`
	Subject   string        `json:"subject" validate:"required"`
	Grade     string        `json:"grade"`
	Language  string        `json:"language"`
	Questions []interface{} `json:"questions"`
	CreatedAt null.Time     `json:"created_at"`
}

// mapQuizDocument converts a quiz document into a remote ContentItem,
// rejecting malformed documents at the adapter boundary rather than
// propagating absent fields.
func mapQuizDocument(doc core.Document) (ContentItem, error) {
	var q quizFields
	q.Title, _ = doc.Data["title"].(string)
	q.Subject, _ = doc.Data["subject"].(string)
	q.Grade, _ = doc.Data["grade"].(string)
	q.Language, _ = doc.Data["language"].(string)
	q.Questions, _ = doc.Data["questions"].([]interface{})
	q.CreatedAt = parseDocTime(doc.Data["created_at"])

	if err := core.Validate.Struct(q); err != nil {
		return ContentItem{}, err
	}

	createdAt := nowFunc().UTC()
	if q.CreatedAt.Valid {
		createdAt = q.CreatedAt.Time
	}
	return ContentItem{
		ID:         doc.ID,
		Title:      q.Title,
		Kind:       KindQuiz,
		Subject:    q.Subject,
		GradeLevel: q.Grade,
		Language:   q.Language,
		Thumbnail:  quizThumbnail,
		SizeLabel:  fmt.Sprintf("%d Qs", len(q.Questions)),
		CreatedAt:  createdAt,
		Status:     StatusPublished,
		Provenance: ProvenanceRemote,
	}, nil
}

// parseDocTime handles the timestamp encodings seen across store adapters:
// native time.Time from the in-memory store, RFC3339 strings from JSONB.
func parseDocTime(v interface{}) null.Time {
	switch t := v.(type) {
	case time.Time:
		return null.TimeFrom(t.UTC())
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return null.TimeFrom(ts.UTC())
		}
	}
	return null.Time{}
}
