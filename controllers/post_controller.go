package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pithakchhorn/portfolio-api/models"
	"github.com/pithakchhorn/portfolio-api/services"
	"github.com/pithakchhorn/portfolio-api/utils"
)

const (
	maxTitleLen    = 255
	maxCategoryLen = 64
	maxTagsLen     = 512
	maxURLLen      = 1024
)

// PostStore is the resource store instantiated for posts.
type PostStore = services.ResourceStore[models.Post, *models.Post]

// PostController manages CRUD operations for blog posts.
type PostController struct {
	store  *PostStore
	ingest *services.Ingestor
}

// NewPostController creates a new PostController instance.
func NewPostController(store *PostStore, ingest *services.Ingestor) *PostController {
	return &PostController{store: store, ingest: ingest}
}

// postForm is the body of create and replace; it binds from JSON or multipart.
type postForm struct {
	Title    string  `json:"title" form:"title"`
	Content  string  `json:"content" form:"content"`
	Tags     string  `json:"tags" form:"tags"`
	Category string  `json:"category" form:"category"`
	ImageURL *string `json:"image_url" form:"image_url"`
}

// postPatch only touches keys that are present.
type postPatch struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Tags     *string `json:"tags"`
	Category *string `json:"category"`
	ImageURL *string `json:"image_url"`
}

func cleanTitle(v string) (string, error) {
	return trimmedRequired("title", v, maxTitleLen)
}

// cleanContent stores content as sent; markup the rich-text policy would strip is refused.
func cleanContent(v string) (string, error) {
	if strings.TrimSpace(v) == "" {
		return "", services.Required("content")
	}
	if !utils.SafeMarkup(v) {
		return "", services.Invalid("content", "contains markup that is not allowed")
	}
	return v, nil
}

func cleanTags(v string) (string, error) {
	v = models.NormalizeTags(v)
	return v, checkLen("tags", v, maxTagsLen)
}

func cleanCategory(v string) (string, error) {
	v = strings.TrimSpace(v)
	return v, checkLen("category", v, maxCategoryLen)
}

func cleanImageURL(v string) (*string, error) {
	if err := checkLen("image_url", v, maxURLLen); err != nil {
		return nil, err
	}
	return optionalString(v), nil
}

// replace applies every field of the form to p; image_url only when given.
func (f postForm) replace(p *models.Post) error {
	var err error
	if p.Title, err = cleanTitle(f.Title); err != nil {
		return err
	}
	if p.Content, err = cleanContent(f.Content); err != nil {
		return err
	}
	if p.Tags, err = cleanTags(f.Tags); err != nil {
		return err
	}
	if p.Category, err = cleanCategory(f.Category); err != nil {
		return err
	}
	if f.ImageURL != nil {
		if p.ImageURL, err = cleanImageURL(*f.ImageURL); err != nil {
			return err
		}
	}
	return nil
}

func (f postPatch) apply(p *models.Post) error {
	var err error
	if f.Title != nil {
		if p.Title, err = cleanTitle(*f.Title); err != nil {
			return err
		}
	}
	if f.Content != nil {
		if p.Content, err = cleanContent(*f.Content); err != nil {
			return err
		}
	}
	if f.Tags != nil {
		if p.Tags, err = cleanTags(*f.Tags); err != nil {
			return err
		}
	}
	if f.Category != nil {
		if p.Category, err = cleanCategory(*f.Category); err != nil {
			return err
		}
	}
	if f.ImageURL != nil {
		if p.ImageURL, err = cleanImageURL(*f.ImageURL); err != nil {
			return err
		}
	}
	return nil
}

// ListPosts returns posts newest first, optionally filtered by category.
func (p *PostController) ListPosts(ctx *gin.Context) {
	opts, err := parseListOptions(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if category := strings.TrimSpace(ctx.Query("category")); category != "" {
		opts.Filter["category"] = category
	}
	posts, err := p.store.List(ctx.Request.Context(), opts)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, posts)
}

// GetPost returns a single post.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	post, err := p.store.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// CreatePost accepts JSON or multipart; a multipart "image" part becomes the post image.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var form postForm
	if err := bindBody(ctx, &form); err != nil {
		respondError(ctx, err)
		return
	}
	var post models.Post
	if err := form.replace(&post); err != nil {
		respondError(ctx, err)
		return
	}

	stored, hasFile, err := receiveImage(ctx, p.ingest, services.KindPosts, post.Title)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if hasFile {
		post.ImageURL = &stored.URL
	}

	if err := p.store.Create(ctx.Request.Context(), &post); err != nil {
		if hasFile {
			p.ingest.Discard(detached(ctx), stored)
		}
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, post)
}

// UpdatePost replaces title, content, tags and category. The image changes only when
// a new file or an explicit image_url is sent.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var form postForm
	if err := bindBody(ctx, &form); err != nil {
		respondError(ctx, err)
		return
	}
	// validate before anything is written to storage
	if err := form.replace(&models.Post{}); err != nil {
		respondError(ctx, err)
		return
	}
	if _, err := p.store.Get(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}

	stored, hasFile, err := receiveImage(ctx, p.ingest, services.KindPosts, form.Title)
	if err != nil {
		respondError(ctx, err)
		return
	}

	post, err := p.store.Update(ctx.Request.Context(), id, func(rec *models.Post) error {
		if err := form.replace(rec); err != nil {
			return err
		}
		if hasFile {
			rec.ImageURL = &stored.URL
		}
		return nil
	})
	if err != nil {
		if hasFile {
			p.ingest.Discard(detached(ctx), stored)
		}
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// PatchPost applies a JSON partial update.
func (p *PostController) PatchPost(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var patch postPatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		respondError(ctx, malformedBody(err))
		return
	}
	post, err := p.store.Update(ctx.Request.Context(), id, patch.apply)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// DeletePost removes a post; its image is left to the upload cleaner.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := p.store.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"id": id, "deleted": true})
}
