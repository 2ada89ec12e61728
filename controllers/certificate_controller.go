package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/pithakchhorn/portfolio-api/models"
	"github.com/pithakchhorn/portfolio-api/services"
	"github.com/pithakchhorn/portfolio-api/utils"
)

const maxDateLen = 64

// CertificateStore is the resource store instantiated for certificates.
type CertificateStore = services.ResourceStore[models.Certificate, *models.Certificate]

// CertificateController manages certificates and their proof images.
type CertificateController struct {
	store  *CertificateStore
	ingest *services.Ingestor
}

// NewCertificateController creates a new CertificateController instance.
func NewCertificateController(store *CertificateStore, ingest *services.Ingestor) *CertificateController {
	return &CertificateController{store: store, ingest: ingest}
}

type certificateForm struct {
	Title  string `json:"title" form:"title"`
	Issuer string `json:"issuer" form:"issuer"`
	Date   string `json:"date" form:"date"`
}

type certificatePatch struct {
	Title  *string `json:"title"`
	Issuer *string `json:"issuer"`
	Date   *string `json:"date"`
}

func (f certificateForm) replace(c *models.Certificate) error {
	var err error
	if c.Title, err = trimmedRequired("title", f.Title, maxTitleLen); err != nil {
		return err
	}
	if c.Issuer, err = trimmedRequired("issuer", f.Issuer, maxTitleLen); err != nil {
		return err
	}
	if c.Date, err = trimmedRequired("date", f.Date, maxDateLen); err != nil {
		return err
	}
	return nil
}

func (f certificatePatch) apply(c *models.Certificate) error {
	var err error
	if f.Title != nil {
		if c.Title, err = trimmedRequired("title", *f.Title, maxTitleLen); err != nil {
			return err
		}
	}
	if f.Issuer != nil {
		if c.Issuer, err = trimmedRequired("issuer", *f.Issuer, maxTitleLen); err != nil {
			return err
		}
	}
	if f.Date != nil {
		if c.Date, err = trimmedRequired("date", *f.Date, maxDateLen); err != nil {
			return err
		}
	}
	return nil
}

// ListCertificates returns certificates newest first.
func (c *CertificateController) ListCertificates(ctx *gin.Context) {
	opts, err := parseListOptions(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}
	items, err := c.store.List(ctx.Request.Context(), opts)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, items)
}

// GetCertificate returns one certificate.
func (c *CertificateController) GetCertificate(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	item, err := c.store.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, item)
}

// CreateCertificate takes a multipart form; the "image" part is mandatory.
func (c *CertificateController) CreateCertificate(ctx *gin.Context) {
	if !isMultipart(ctx) {
		respondError(ctx, services.Required("image"))
		return
	}
	var form certificateForm
	if err := bindBody(ctx, &form); err != nil {
		respondError(ctx, err)
		return
	}
	var cert models.Certificate
	if err := form.replace(&cert); err != nil {
		respondError(ctx, err)
		return
	}

	stored, hasFile, err := receiveImage(ctx, c.ingest, services.KindCertificates, cert.Title)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !hasFile {
		respondError(ctx, services.Required("image"))
		return
	}
	cert.ImageURL = stored.URL

	if err := c.store.Create(ctx.Request.Context(), &cert); err != nil {
		c.ingest.Discard(detached(ctx), stored)
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, cert)
}

// UpdateCertificate replaces title, issuer and date; a new "image" part replaces the image.
func (c *CertificateController) UpdateCertificate(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var form certificateForm
	if err := bindBody(ctx, &form); err != nil {
		respondError(ctx, err)
		return
	}
	if err := form.replace(&models.Certificate{}); err != nil {
		respondError(ctx, err)
		return
	}
	if _, err := c.store.Get(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}

	stored, hasFile, err := receiveImage(ctx, c.ingest, services.KindCertificates, form.Title)
	if err != nil {
		respondError(ctx, err)
		return
	}

	cert, err := c.store.Update(ctx.Request.Context(), id, func(rec *models.Certificate) error {
		if err := form.replace(rec); err != nil {
			return err
		}
		if hasFile {
			rec.ImageURL = stored.URL
		}
		return nil
	})
	if err != nil {
		if hasFile {
			c.ingest.Discard(detached(ctx), stored)
		}
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, cert)
}

// PatchCertificate applies a JSON partial update; the image is not touched.
func (c *CertificateController) PatchCertificate(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var patch certificatePatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		respondError(ctx, malformedBody(err))
		return
	}
	cert, err := c.store.Update(ctx.Request.Context(), id, patch.apply)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, cert)
}

// DeleteCertificate removes a certificate; its image is left to the upload cleaner.
func (c *CertificateController) DeleteCertificate(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := c.store.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"id": id, "deleted": true})
}
