package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ProgressStatus is the completion state recorded for a skill.
type ProgressStatus string

const (
	StatusNotAttempted ProgressStatus = "not attempted"
	StatusIncomplete   ProgressStatus = "incomplete"
	StatusCompleted    ProgressStatus = "completed"
	StatusPassed       ProgressStatus = "passed"
	StatusFailed       ProgressStatus = "failed"
)

// Valid reports whether s is a known progress status.
func (s ProgressStatus) Valid() bool {
	switch s {
	case StatusNotAttempted, StatusIncomplete, StatusCompleted, StatusPassed, StatusFailed:
		return true
	}
	return false
}

// AgeRange is an inclusive range of ages in years.
type AgeRange struct {
	Min int `bson:"min" json:"min"`
	Max int `bson:"max" json:"max"`
}

// Contains reports whether age falls inside the range.
func (r AgeRange) Contains(age int) bool {
	return age >= r.Min && age <= r.Max
}

// Progress is the attempt record attached to a skill.
type Progress struct {
	Status      ProgressStatus `bson:"status" json:"status"`
	Score       *float64       `bson:"score,omitempty" json:"score,omitempty"`
	TimeSpent   int            `bson:"timeSpent" json:"timeSpent"` // seconds
	LastAttempt *time.Time     `bson:"lastAttempt,omitempty" json:"lastAttempt,omitempty"`
}

// Skill is a unit of learning content embedded in a path.
type Skill struct {
	Slug        string   `bson:"slug" json:"slug"`
	Name        string   `bson:"name" json:"name"`
	Description string   `bson:"description" json:"description"`
	AgeRange    AgeRange `bson:"ageRange" json:"ageRange"`
	Progress    Progress `bson:"progress" json:"progress"`
}

// Path is a named curriculum of skills that can be assigned to children.
type Path struct {
	ID          bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Slug        string          `bson:"slug" json:"slug"`
	Name        string          `bson:"name" json:"name"`
	Description string          `bson:"description" json:"description"`
	Category    string          `bson:"category" json:"category"`
	Skills      []Skill         `bson:"skills" json:"skills"`
	Children    []bson.ObjectID `bson:"children" json:"-"`
	CreatedAt   time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// Validate reports whether the document conforms to the path schema.
func (p *Path) Validate() error {
	if strings.TrimSpace(p.Slug) == "" {
		return errors.New("path: slug is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("path: name is required")
	}
	if strings.TrimSpace(p.Description) == "" {
		return errors.New("path: description is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		return errors.New("path: category is required")
	}
	for i, s := range p.Skills {
		if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.Description) == "" {
			return fmt.Errorf("path: skill %d is missing name or description", i)
		}
		if s.AgeRange.Min < 0 || s.AgeRange.Max < s.AgeRange.Min {
			return fmt.Errorf("path: skill %q has an invalid age range", s.Name)
		}
		if s.Progress.Status != "" && !s.Progress.Status.Valid() {
			return fmt.Errorf("path: skill %q has an invalid status %q", s.Name, s.Progress.Status)
		}
	}
	return nil
}

// Matches reports whether the path satisfies a free-text query and a category filter.
// An empty category or "all" matches every category.
func (p *Path) Matches(query, category string) bool {
	if category != "" && category != "all" && !strings.EqualFold(p.Category, category) {
		return false
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), query) ||
		strings.Contains(strings.ToLower(p.Description), query)
}

// SkillsForAge returns the skills whose age range includes age.
func (p *Path) SkillsForAge(age int) []Skill {
	var out []Skill
	for _, s := range p.Skills {
		if s.AgeRange.Contains(age) {
			out = append(out, s)
		}
	}
	return out
}

// ChildSkill pairs an age-appropriate skill with the path it belongs to.
type ChildSkill struct {
	PathID   bson.ObjectID `json:"pathId"`
	PathName string        `json:"pathName"`
	Skill    Skill         `json:"skill"`
}
