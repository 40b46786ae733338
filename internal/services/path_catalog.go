package services

import "github.com/growthpath/growthpath-be/internal/models"

// Path categories offered by the catalog browser.
const (
	CategoryBasics     = "basics"
	CategoryLifeSkills = "life-skills"
	CategorySports     = "sports"
	CategoryTech       = "tech"
)

func notAttempted() models.Progress {
	return models.Progress{Status: models.StatusNotAttempted}
}

// DefaultCatalog is the set of paths written by Seed.
func DefaultCatalog() []models.Path {
	return []models.Path{
		{
			Slug:        "cleaning",
			Name:        "Cleaning",
			Description: "Learn essential cleaning skills for a tidy home",
			Category:    CategoryBasics,
			Skills: []models.Skill{
				{
					Slug:        "make-bed",
					Name:        "Make Your Bed",
					Description: "Learn to make your bed neatly every morning",
					AgeRange:    models.AgeRange{Min: 4, Max: 6},
					Progress:    notAttempted(),
				},
				{
					Slug:        "vacuum",
					Name:        "Vacuum a Room",
					Description: "Use a vacuum cleaner safely to clean the floor",
					AgeRange:    models.AgeRange{Min: 6, Max: 8},
					Progress:    notAttempted(),
				},
			},
		},
		{
			Slug:        "cooking",
			Name:        "Cooking",
			Description: "Basic cooking skills and kitchen safety",
			Category:    CategoryLifeSkills,
			Skills: []models.Skill{
				{
					Slug:        "sandwich",
					Name:        "Make a Sandwich",
					Description: "Prepare a simple sandwich on your own",
					AgeRange:    models.AgeRange{Min: 5, Max: 7},
					Progress:    notAttempted(),
				},
				{
					Slug:        "microwave",
					Name:        "Use the Microwave",
					Description: "Heat food safely using a microwave",
					AgeRange:    models.AgeRange{Min: 7, Max: 9},
					Progress:    notAttempted(),
				},
			},
		},
		{
			Slug:        "mathematics",
			Name:        "Mathematics",
			Description: "Basic arithmetic and problem-solving skills",
			Category:    CategoryBasics,
			Skills: []models.Skill{
				{
					Slug:        "addition",
					Name:        "Addition",
					Description: "Adding numbers up to 100",
					AgeRange:    models.AgeRange{Min: 6, Max: 8},
					Progress:    notAttempted(),
				},
			},
		},
	}
}
