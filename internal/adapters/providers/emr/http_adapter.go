package emr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/providers"
)

// HTTPAdapter implements EMRProvider against a practice management system's
// REST API
type HTTPAdapter struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewHTTPAdapter creates a new HTTP-based EMR adapter
func NewHTTPAdapter(baseURL, apiKey string) providers.EMRProvider {
	return &HTTPAdapter{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

type mirrorRequest struct {
	AppointmentID     string    `json:"appointment_id"`
	ProviderID        string    `json:"provider_id"`
	BillingProviderID string    `json:"billing_provider_id"`
	PatientRef        string    `json:"patient_ref"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
}

type mirrorResponse struct {
	ExternalID string `json:"external_id"`
}

// MirrorAppointment creates the appointment downstream and returns the
// external identifier
func (a *HTTPAdapter) MirrorAppointment(ctx context.Context, appointment *entities.Appointment) (string, error) {
	payload := mirrorRequest{
		AppointmentID:     appointment.ID,
		ProviderID:        appointment.ProviderID,
		BillingProviderID: appointment.BillingProviderID,
		PatientRef:        appointment.PatientRef,
		StartTime:         appointment.Start.UTC(),
		EndTime:           appointment.End.UTC(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/appointments", a.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	a.addHeaders(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("emr api error: status %d", resp.StatusCode)
	}

	var result mirrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.ExternalID == "" {
		return "", fmt.Errorf("emr api returned no external id")
	}

	return result.ExternalID, nil
}

// MirrorCancellation propagates a cancellation downstream
func (a *HTTPAdapter) MirrorCancellation(ctx context.Context, externalID string, reason string) error {
	url := fmt.Sprintf("%s/appointments/%s/cancellation", a.baseURL, externalID)

	payload := map[string]string{
		"reason": reason,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	a.addHeaders(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to cancel downstream appointment: %d", resp.StatusCode)
	}

	return nil
}

func (a *HTTPAdapter) addHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", a.apiKey))
	req.Header.Set("Content-Type", "application/json")
}
