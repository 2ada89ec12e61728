package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pithakchhorn/portfolio-api/models"
	"github.com/pithakchhorn/portfolio-api/services"
	"github.com/pithakchhorn/portfolio-api/utils"
)

const (
	maxSkillNameLen    = 128
	maxColorLen        = 16
	defaultFeaturedMax = 10
)

// SkillStore is the resource store instantiated for skills.
type SkillStore = services.ResourceStore[models.Skill, *models.Skill]

// SkillController serves the skill matrix and its aggregate statistics.
type SkillController struct {
	store   *SkillStore
	queries *services.SkillQueries
}

// NewSkillController creates a new SkillController instance.
func NewSkillController(store *SkillStore, queries *services.SkillQueries) *SkillController {
	return &SkillController{store: store, queries: queries}
}

// skillInput is used for both create and the partial PUT.
type skillInput struct {
	Name        *string `json:"name"`
	Category    *string `json:"category"`
	Proficiency *int    `json:"proficiency"`
	IconURL     *string `json:"icon_url"`
	Color       *string `json:"color"`
	Order       *int    `json:"order"`
	IsFeatured  *bool   `json:"is_featured"`
}

func (in skillInput) apply(s *models.Skill) error {
	var err error
	if in.Name != nil {
		if s.Name, err = trimmedRequired("name", *in.Name, maxSkillNameLen); err != nil {
			return err
		}
	}
	if in.Category != nil {
		if s.Category, err = cleanCategory(*in.Category); err != nil {
			return err
		}
	}
	if in.Proficiency != nil {
		if *in.Proficiency < 0 || *in.Proficiency > 100 {
			return services.Invalid("proficiency", "must be between 0 and 100")
		}
		v := *in.Proficiency
		s.Proficiency = &v
	}
	if in.IconURL != nil {
		if s.IconURL, err = cleanImageURL(*in.IconURL); err != nil {
			return err
		}
	}
	if in.Color != nil {
		if err = checkLen("color", *in.Color, maxColorLen); err != nil {
			return err
		}
		s.Color = optionalString(*in.Color)
	}
	if in.Order != nil {
		s.Order = *in.Order
	}
	if in.IsFeatured != nil {
		s.IsFeatured = *in.IsFeatured
	}
	return nil
}

// ListSkills returns skills in display order, filtered by category and featured flag.
func (s *SkillController) ListSkills(ctx *gin.Context) {
	opts, err := parseListOptions(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if category := strings.TrimSpace(ctx.Query("category")); category != "" {
		opts.Filter["category"] = category
	}
	if v := strings.TrimSpace(ctx.Query("featured")); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			respondError(ctx, services.Invalid("featured", "must be a boolean"))
			return
		}
		opts.Filter["is_featured"] = featured
	}
	skills, err := s.store.List(ctx.Request.Context(), opts)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, skills)
}

// GetSkill returns one skill.
func (s *SkillController) GetSkill(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	skill, err := s.store.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, skill)
}

func (s *SkillController) Categories(ctx *gin.Context) {
	cats, err := s.queries.Categories(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, cats)
}

func (s *SkillController) Featured(ctx *gin.Context) {
	limit, err := queryInt(ctx, "limit", defaultFeaturedMax)
	if err != nil {
		respondError(ctx, err)
		return
	}
	skills, err := s.queries.Featured(ctx.Request.Context(), limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, skills)
}

func (s *SkillController) CategoryDistribution(ctx *gin.Context) {
	rows, err := s.queries.CategoryDistribution(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, rows)
}

func (s *SkillController) ProficiencyLevels(ctx *gin.Context) {
	stats, err := s.queries.ProficiencyLevels(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}

// CreateSkill adds a skill; names are unique.
func (s *SkillController) CreateSkill(ctx *gin.Context) {
	var in skillInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		respondError(ctx, malformedBody(err))
		return
	}
	if in.Name == nil {
		respondError(ctx, services.Required("name"))
		return
	}
	var skill models.Skill
	if err := in.apply(&skill); err != nil {
		respondError(ctx, err)
		return
	}
	taken, err := s.store.Exists(ctx.Request.Context(), "name", skill.Name, 0)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if taken {
		respondError(ctx, services.ErrConflict)
		return
	}
	if err := s.store.Create(ctx.Request.Context(), &skill); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, skill)
}

// UpdateSkill changes only the fields present in the body.
func (s *SkillController) UpdateSkill(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var in skillInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		respondError(ctx, malformedBody(err))
		return
	}
	if in.Name != nil {
		taken, err := s.store.Exists(ctx.Request.Context(), "name", strings.TrimSpace(*in.Name), id)
		if err != nil {
			respondError(ctx, err)
			return
		}
		if taken {
			respondError(ctx, services.ErrConflict)
			return
		}
	}
	// the unique index still catches a concurrent rename
	skill, err := s.store.Update(ctx.Request.Context(), id, in.apply)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, skill)
}

func (s *SkillController) DeleteSkill(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := s.store.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"id": id, "deleted": true})
}
