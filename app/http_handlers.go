package app

import (
	"context"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/matthgross1/message-intent-lab/app/models"
)

const (
	maxScreenshots    = 3
	maxScreenshotSize = 8 << 20 // bytes, per image
	decodeTimeout     = 90 * time.Second
)

// Health is a public health check endpoint.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GetPage renders the decode form with the caller's current usage state.
func (s *Server) GetPage(c *gin.Context) {
	userID := s.resolveIdentity(c)

	decision, err := s.Evaluate(c.Request.Context(), userID)
	if err != nil {
		log.Printf("evaluate failed user=%s err=%v", userID, err)
		c.HTML(http.StatusInternalServerError, "page", pageData{
			Error:          "Something went wrong on our side. Please try again.",
			FreeDailyLimit: models.FreeDailyLimit,
		})
		return
	}

	c.HTML(http.StatusOK, "page", s.newPageData(decision))
}

// PostDecode runs one decode: entitlement check, transcription when only
// screenshots were provided, interpretation, then the usage commit. Usage is
// charged only after the analysis succeeded.
func (s *Server) PostDecode(c *gin.Context) {
	userID := s.resolveIdentity(c)

	situation := strings.TrimSpace(c.PostForm("context"))
	thread := strings.TrimSpace(c.PostForm("thread"))
	images, err := readScreenshots(c)
	if err != nil {
		s.renderDecodeError(c, userID, http.StatusBadRequest, situation, thread, err.Error())
		return
	}
	if thread == "" && len(images) == 0 {
		s.renderDecodeError(c, userID, http.StatusBadRequest, situation, thread,
			"Add at least one screenshot or paste the messages.")
		return
	}

	decision, err := s.Evaluate(c.Request.Context(), userID)
	if err != nil {
		log.Printf("evaluate failed user=%s err=%v", userID, err)
		s.renderDecodeError(c, userID, http.StatusInternalServerError, situation, thread,
			"Something went wrong on our side. Please try again.")
		return
	}

	if decision.Path == models.PathBlocked {
		data := s.newPageData(decision)
		data.Context = situation
		data.Thread = thread
		c.HTML(http.StatusOK, "page", data)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), decodeTimeout)
	defer cancel()

	// Screenshots are only transcribed when no pasted thread was given;
	// pasted text wins because it is already exact.
	if thread == "" {
		thread, err = s.analyzer.Transcribe(ctx, images)
		if err != nil {
			log.Printf("transcription failed user=%s err=%v", userID, err)
			s.renderDecodeError(c, userID, http.StatusBadGateway, situation, "",
				"Could not read those screenshots. Try clearer ones, or paste the messages instead.")
			return
		}
	}

	markup, err := s.analyzer.Interpret(ctx, situation, thread)
	if err != nil {
		log.Printf("interpretation failed user=%s err=%v", userID, err)
		s.renderDecodeError(c, userID, http.StatusBadGateway, situation, thread,
			"The decoder is having a moment. Please try again.")
		return
	}

	if err := s.Commit(c.Request.Context(), userID, decision.Path); err != nil {
		// The analysis ran but the ledger could not be charged; deny rather
		// than hand out an unmetered decode.
		log.Printf("commit failed user=%s path=%s err=%v", userID, decision.Path, err)
		s.renderDecodeError(c, userID, http.StatusInternalServerError, situation, thread,
			"Something went wrong on our side. Please try again.")
		return
	}

	// Re-evaluate so the rendered usage line reflects the charge.
	decision, err = s.Evaluate(c.Request.Context(), userID)
	if err != nil {
		log.Printf("post-commit evaluate failed user=%s err=%v", userID, err)
	}

	data := s.newPageData(decision)
	data.Context = situation
	data.Thread = thread
	data.Result = SanitizeMarkup(markup)
	data.Blocked = false
	c.HTML(http.StatusOK, "page", data)
}

// GetUsage reports the caller's entitlement state as JSON.
func (s *Server) GetUsage(c *gin.Context) {
	userID := s.resolveIdentity(c)

	decision, err := s.Evaluate(c.Request.Context(), userID)
	if err != nil {
		log.Printf("usage evaluate failed user=%s err=%v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"path":              decision.Path,
		"freeUsesToday":     decision.Ledger.FreeUsesToday,
		"freeRemaining":     decision.Ledger.FreeRemaining(models.DayUTC(s.now())),
		"freeDailyLimit":    models.FreeDailyLimit,
		"paidCredits":       decision.Ledger.PaidDecodeCredits,
		"totalDecodes":      decision.Ledger.TotalDecodes,
		"purchasingEnabled": decision.PurchasingEnabled,
	})
}

// BillingSuccess lands the user back on the page after a completed checkout.
// Credits arrive via webhook, which may lag the redirect by a moment.
func (s *Server) BillingSuccess(c *gin.Context) {
	s.renderWithNotice(c, "Payment received. Your decode credits will appear in a moment.")
}

// BillingCancel lands the user back on the page after an abandoned checkout.
func (s *Server) BillingCancel(c *gin.Context) {
	s.renderWithNotice(c, "Checkout cancelled. No charge was made.")
}

func (s *Server) renderWithNotice(c *gin.Context, notice string) {
	userID := s.resolveIdentity(c)
	decision, err := s.Evaluate(c.Request.Context(), userID)
	if err != nil {
		log.Printf("billing page evaluate failed user=%s err=%v", userID, err)
		c.HTML(http.StatusInternalServerError, "page", pageData{
			Error:          "Something went wrong on our side. Please try again.",
			FreeDailyLimit: models.FreeDailyLimit,
		})
		return
	}
	data := s.newPageData(decision)
	data.Notice = notice
	c.HTML(http.StatusOK, "page", data)
}

func (s *Server) renderDecodeError(c *gin.Context, userID string, status int, situation, thread, msg string) {
	data := pageData{
		Error:          msg,
		Context:        situation,
		Thread:         thread,
		FreeDailyLimit: models.FreeDailyLimit,
		Packs:          models.CreditPackSizes,
	}
	// Best effort usage line; the error message is the point here.
	if decision, err := s.Evaluate(c.Request.Context(), userID); err == nil {
		data.FreeRemaining = decision.Ledger.FreeRemaining(models.DayUTC(s.now()))
		data.Credits = decision.Ledger.PaidDecodeCredits
	}
	c.HTML(status, "page", data)
}

func readScreenshots(c *gin.Context) ([]ImageAttachment, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// Plain form posts without files are fine.
		return nil, nil
	}
	files := form.File["images"]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > maxScreenshots {
		files = files[:maxScreenshots]
	}

	images := make([]ImageAttachment, 0, len(files))
	for _, header := range files {
		img, err := readScreenshot(header)
		if err != nil {
			return nil, err
		}
		if img != nil {
			images = append(images, *img)
		}
	}
	return images, nil
}

func readScreenshot(header *multipart.FileHeader) (*ImageAttachment, error) {
	if header.Size == 0 {
		return nil, nil
	}
	if header.Size > maxScreenshotSize {
		return nil, errors.New("That screenshot is too large. Keep each image under 8 MB.")
	}
	file, err := header.Open()
	if err != nil {
		return nil, errors.New("Could not read one of the uploaded images.")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxScreenshotSize))
	if err != nil {
		return nil, errors.New("Could not read one of the uploaded images.")
	}

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, errors.New("Only image uploads are supported.")
	}

	return &ImageAttachment{MIMEType: mimeType, Data: data}, nil
}
