package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	v1 "github.com/christianberko/orobor-website/api/v1"
	"github.com/christianberko/orobor-website/core/httpio"
	"github.com/christianberko/orobor-website/core/validator"
	"github.com/christianberko/orobor-website/founder"
	"github.com/christianberko/orobor-website/orders"
	"github.com/christianberko/orobor-website/ups"
)

const maxRequestBody = 10 << 20 // 10mb, matches the old site limit

type labelCreator interface {
	CreateLabel(ctx context.Context, payload []byte) (v1.LabelResult, error)
}

type identityClient interface {
	SignIn(ctx context.Context, email, password string) (founder.Session, error)
	SignOut(ctx context.Context, token string) error
}

func (app *application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	err := httpio.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(app.started).String(),
	})
	if err != nil {
		app.log.Error("Writing response", "error", err)
	}
}

func (app *application) createLabelHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		httpio.BadRequestResponse(w, "Invalid shipment request format")
		return
	}

	label, err := app.labels.CreateLabel(r.Context(), payload)
	if err != nil {
		app.writeLabelError(w, r, err)
		return
	}

	err = httpio.WriteJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"trackingNumber": label.TrackingNumber,
		"labelImage":     label.LabelImage,
		"labelFormat":    label.LabelFormat,
		"totalCharges":   label.TotalCharges,
		"currency":       label.Currency,
	})
	if err != nil {
		app.log.Error("Writing response", "error", err)
	}
}

// writeLabelError maps the label-creation error taxonomy onto HTTP
// statuses.
func (app *application) writeLabelError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr   *ups.ValidationError
		authErr         *ups.AuthError
		carrierErr      *ups.CarrierError
		incompleteErr   *ups.IncompleteSuccessError
		unrecognizedErr *ups.UnrecognizedShapeError
	)

	switch {
	case errors.As(err, &validationErr):
		httpio.FailedValidationResponse(w, r, validationErr.Fields)
	case errors.As(err, &authErr):
		app.log.Error("carrier authentication failed", "status", authErr.Status, "body", authErr.Body)
		httpio.UnauthorizedResponse(w, "Failed to authenticate with the carrier")
	case errors.As(err, &carrierErr):
		app.log.Error("carrier error", "status", carrierErr.Status, "message", carrierErr.Message, "body", carrierErr.Body)
		if carrierErr.Connectivity() {
			httpio.ErrorResponse(w, http.StatusServiceUnavailable, "Carrier is unreachable")
			return
		}
		httpio.BadRequestResponse(w, carrierErr.Message)
	case errors.As(err, &incompleteErr):
		app.log.Error("incomplete carrier success payload", "missing", incompleteErr.Missing)
		httpio.InternalServerErrorResponse(w, incompleteErr.Error())
	case errors.As(err, &unrecognizedErr):
		httpio.InternalServerErrorResponse(w, "Unexpected response from the carrier")
	default:
		app.log.Error("creating label", "error", err)
		httpio.InternalServerErrorResponse(w, "Internal server error while creating shipping label")
	}
}

func (app *application) signinHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httpio.Decode(r.Body, &input); err != nil {
		httpio.BadRequestResponse(w, "Invalid sign-in request")
		return
	}
	if !validator.Matches(input.Email, validator.EmailRX) {
		httpio.BadRequestResponse(w, "Invalid email address")
		return
	}

	// Allowlist check runs before the provider call so non-founder
	// credentials are never forwarded.
	if !app.gate.IsFounder(input.Email) {
		httpio.UnauthorizedResponse(w, "Unauthorized access. Founders only.")
		return
	}

	session, err := app.identity.SignIn(r.Context(), input.Email, input.Password)
	if err != nil {
		app.log.Error("sign in failed", "error", err)
		httpio.BadRequestResponse(w, "Invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     founder.SessionCookie,
		Value:    session.AccessToken,
		Path:     "/",
		MaxAge:   24 * 60 * 60,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	httpio.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    map[string]string{"email": session.User.Email},
		"message": "Successfully signed in as founder",
	})
}

func (app *application) signoutHandler(w http.ResponseWriter, r *http.Request) {
	if token := founder.SessionToken(r); token != "" {
		if err := app.identity.SignOut(r.Context(), token); err != nil {
			app.log.Error("provider signout failed", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     founder.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	httpio.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Successfully signed out",
	})
}

func (app *application) authStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.gate.Verify(founder.SessionToken(r))
	if err != nil {
		httpio.WriteJSON(w, http.StatusUnauthorized, map[string]any{
			"authenticated": false,
		})
		return
	}
	httpio.WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          map[string]string{"email": id.Email},
	})
}

func (app *application) founderDashboardHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := founder.IdentityFrom(r.Context())
	httpio.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to the founder dashboard",
		"user":    map[string]string{"email": id.Email},
	})
}

func (app *application) founderOrdersHandler(w http.ResponseWriter, r *http.Request) {
	records, err := app.store.List()
	if err != nil {
		app.log.Error("listing orders", "error", err)
		httpio.InternalServerErrorResponse(w, "Failed to load orders")
		return
	}
	httpio.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"orders":  records,
	})
}

func (app *application) founderAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	records, err := app.store.List()
	if err != nil {
		app.log.Error("listing orders", "error", err)
		httpio.InternalServerErrorResponse(w, "Failed to load analytics")
		return
	}
	httpio.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"analytics": orders.Aggregate(records, time.Now()),
	})
}

func (app *application) locationsHandler(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(filepath.Join(app.config.PublicDir, "json", "locations.json"))
	if err != nil {
		app.log.Error("Failed to load locations", "error", err)
		httpio.InternalServerErrorResponse(w, "Failed to load locations")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (app *application) servePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(app.config.PublicDir, name))
	}
}

// staticHandler serves the marketing site assets and returns the JSON
// 404 for anything that is not a file.
func (app *application) staticHandler() http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(app.config.PublicDir))
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(app.config.PublicDir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}
		httpio.NotFoundResponse(w)
	}
}
