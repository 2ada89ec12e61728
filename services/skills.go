package services

import (
	"context"
	"math"

	"gorm.io/gorm"

	"github.com/pithakchhorn/portfolio-api/models"
)

// SkillOrder is the display order of the skill matrix.
const SkillOrder = "sort_order ASC, name ASC"

// CategoryCount is one row of the skill category distribution.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// ProficiencyStats summarises skill proficiency values.
type ProficiencyStats struct {
	Average float64 `json:"average_proficiency"`
	Max     int     `json:"max_proficiency"`
	Min     int     `json:"min_proficiency"`
	Total   int64   `json:"total_skills"`
}

// SkillQueries are the read-only aggregate queries over skills.
type SkillQueries struct {
	db *gorm.DB
}

func NewSkillQueries(db *gorm.DB) *SkillQueries {
	return &SkillQueries{db: db}
}

// Categories returns the distinct non-empty categories.
func (q *SkillQueries) Categories(ctx context.Context) ([]string, error) {
	cats := make([]string, 0)
	err := q.db.WithContext(ctx).Model(&models.Skill{}).
		Where("category IS NOT NULL AND category <> ''").
		Distinct().Order("category").Pluck("category", &cats).Error
	return cats, err
}

// Featured returns featured skills in display order.
func (q *SkillQueries) Featured(ctx context.Context, limit int) ([]models.Skill, error) {
	if limit < 1 || limit > 20 {
		return nil, Invalid("limit", "must be between 1 and 20")
	}
	skills := make([]models.Skill, 0)
	err := q.db.WithContext(ctx).Where("is_featured = ?", true).
		Order(SkillOrder).Limit(limit).Find(&skills).Error
	return skills, err
}

// CategoryDistribution counts skills per non-empty category.
func (q *SkillQueries) CategoryDistribution(ctx context.Context) ([]CategoryCount, error) {
	rows := make([]CategoryCount, 0)
	err := q.db.WithContext(ctx).Model(&models.Skill{}).
		Select("category, COUNT(id) AS count").
		Where("category IS NOT NULL AND category <> ''").
		Group("category").Order("category").Scan(&rows).Error
	return rows, err
}

type proficiencyRow struct {
	AvgValue *float64
	MaxValue *int
	MinValue *int
	Total    int64
}

// ProficiencyLevels aggregates proficiency over skills that have one.
func (q *SkillQueries) ProficiencyLevels(ctx context.Context) (ProficiencyStats, error) {
	var row proficiencyRow
	err := q.db.WithContext(ctx).Model(&models.Skill{}).
		Select("AVG(proficiency) AS avg_value, MAX(proficiency) AS max_value, MIN(proficiency) AS min_value, COUNT(id) AS total").
		Where("proficiency IS NOT NULL").Scan(&row).Error
	if err != nil {
		return ProficiencyStats{}, err
	}
	stats := ProficiencyStats{Min: 100, Total: row.Total}
	if row.AvgValue != nil {
		stats.Average = math.Round(*row.AvgValue*100) / 100
	}
	if row.MaxValue != nil {
		stats.Max = *row.MaxValue
	}
	if row.MinValue != nil {
		stats.Min = *row.MinValue
	}
	return stats, nil
}

func seedSkill(name, category string, proficiency int, color string, order int, featured bool) models.Skill {
	return models.Skill{
		Name:        name,
		Category:    category,
		Proficiency: &proficiency,
		Color:       &color,
		Order:       order,
		IsFeatured:  featured,
	}
}

// StarterSkills is the set written by SeedDefaults.
func StarterSkills() []models.Skill {
	return []models.Skill{
		seedSkill("Python", "Programming", 90, "#3776AB", 1, true),
		seedSkill("JavaScript", "Programming", 85, "#F7DF1E", 2, true),
		seedSkill("FastAPI", "Framework", 80, "#009688", 3, true),
		seedSkill("React", "Framework", 75, "#61DAFB", 4, true),
		seedSkill("SQL", "Database", 85, "#4479A1", 5, false),
		seedSkill("Git", "Tool", 80, "#F05032", 6, false),
		seedSkill("Docker", "Tool", 70, "#2496ED", 7, false),
		seedSkill("HTML/CSS", "Web", 95, "#E34F26", 8, false),
		seedSkill("TypeScript", "Programming", 70, "#3178C6", 9, false),
		seedSkill("PostgreSQL", "Database", 75, "#4169E1", 10, false),
	}
}

// SeedDefaults writes StarterSkills when the table is empty and reports how many rows
// were added. A table with any skill is left alone.
func (q *SkillQueries) SeedDefaults(ctx context.Context) (int, error) {
	added := 0
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Skill{}).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		skills := StarterSkills()
		if err := tx.Create(&skills).Error; err != nil {
			return err
		}
		added = len(skills)
		return nil
	})
	return added, err
}
