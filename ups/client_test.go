package ups

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	v1 "github.com/christianberko/orobor-website/api/v1"
)

type carrierStub struct {
	mu         sync.Mutex
	tokenCalls int
	shipCalls  int

	tokenStatus int
	tokenBody   string
	shipStatus  int
	shipBody    string

	lastAuthorization string
	lastShipHeaders   http.Header
	lastShipBody      []byte
}

func newCarrierStub() *carrierStub {
	return &carrierStub{
		tokenStatus: http.StatusOK,
		tokenBody:   `{"access_token":"test-token","token_type":"Bearer"}`,
		shipStatus:  http.StatusOK,
	}
}

func (s *carrierStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.tokenCalls++
		s.lastAuthorization = r.Header.Get("Authorization")
		s.mu.Unlock()
		w.WriteHeader(s.tokenStatus)
		io.WriteString(w, s.tokenBody)
	})
	mux.HandleFunc("/v1/ship", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.shipCalls++
		s.lastShipHeaders = r.Header.Clone()
		s.lastShipBody = body
		s.mu.Unlock()
		w.WriteHeader(s.shipStatus)
		io.WriteString(w, s.shipBody)
	})
	return mux
}

func newTestClient(t *testing.T, stub *carrierStub) *Client {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		BaseURL:      srv.URL,
		OAuthURL:     srv.URL + "/token",
	}, log)
}

func validShipmentJSON() []byte {
	return []byte(`{"ShipmentRequest":{"Shipment":{
		"Shipper":{"Name":"Orobor","Phone":{"Number":"5125550100"},"Address":{"AddressLine":"600 Congress Ave","City":"Austin","StateProvinceCode":"TX","PostalCode":"78701","CountryCode":"US"}},
		"ShipTo":{"Name":"Jane Doe"},
		"Service":{"Code":"03"},
		"Package":{"PackagingType":{"Code":"02"}}
	}}}`)
}

func successBody() string {
	return `{"ShipmentResponse":{
		"Response":{"ResponseStatusCode":"1"},
		"ShipmentResults":{
			"ShipmentIdentificationNumber":"1ZSHIPID",
			"ShipmentCharges":{"TotalCharges":{"CurrencyCode":"USD","MonetaryValue":"12.34"}},
			"PackageResults":[{"TrackingNumber":"1Z999AA10123456784","ShippingLabel":{"GraphicImage":"iVBORw0KGgo=","ImageFormat":{"Code":"PNG"}}}]
		}
	}}`
}

func TestCreateLabelValidationFailsBeforeNetwork(t *testing.T) {
	payloads := map[string]string{
		"missing wrapper": `{"Shipment":{}}`,
		"missing Shipper": `{"ShipmentRequest":{"Shipment":{"ShipTo":{"Name":"J"},"Package":{"Weight":"1"}}}}`,
		"missing ShipTo":  `{"ShipmentRequest":{"Shipment":{"Shipper":{"Name":"O"},"Package":{"Weight":"1"}}}}`,
		"missing Package": `{"ShipmentRequest":{"Shipment":{"Shipper":{"Name":"O"},"ShipTo":{"Name":"J"}}}}`,
		"not json":        `{"ShipmentRequest":`,
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			stub := newCarrierStub()
			client := newTestClient(t, stub)

			_, err := client.CreateLabel(context.Background(), []byte(payload))

			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if stub.tokenCalls != 0 || stub.shipCalls != 0 {
				t.Fatalf("expected zero network calls, got token=%d ship=%d", stub.tokenCalls, stub.shipCalls)
			}
		})
	}
}

func TestCreateLabelAuthFailureSkipsShipCall(t *testing.T) {
	stub := newCarrierStub()
	stub.tokenStatus = http.StatusUnauthorized
	stub.tokenBody = `{"response":{"errors":[{"code":"10401","message":"invalid client"}]}}`
	client := newTestClient(t, stub)

	_, err := client.CreateLabel(context.Background(), validShipmentJSON())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", authErr.Status)
	}
	if !strings.Contains(authErr.Body, "invalid client") {
		t.Fatalf("expected upstream body retained, got %q", authErr.Body)
	}
	if stub.shipCalls != 0 {
		t.Fatalf("expected ship endpoint not to be called, got %d calls", stub.shipCalls)
	}
}

func TestObtainTokenUsesBasicAuth(t *testing.T) {
	stub := newCarrierStub()
	client := newTestClient(t, stub)

	token, err := client.ObtainToken(context.Background())
	if err != nil {
		t.Fatalf("obtain token: %v", err)
	}
	if token != "test-token" {
		t.Fatalf("expected test-token, got %q", token)
	}
	// base64("id:secret")
	if stub.lastAuthorization != "Basic aWQ6c2VjcmV0" {
		t.Fatalf("unexpected Authorization header %q", stub.lastAuthorization)
	}
}

func TestCreateLabelFault(t *testing.T) {
	stub := newCarrierStub()
	stub.shipBody = `{"fault":{"faultcode":"Client","faultstring":"Invalid Authentication Information."}}`
	client := newTestClient(t, stub)

	_, err := client.CreateLabel(context.Background(), validShipmentJSON())

	var carrierErr *CarrierError
	if !errors.As(err, &carrierErr) {
		t.Fatalf("expected CarrierError, got %v", err)
	}
	if !strings.Contains(carrierErr.Message, "Invalid Authentication Information.") {
		t.Fatalf("expected fault message, got %q", carrierErr.Message)
	}
}

func TestCreateLabelSuccess(t *testing.T) {
	stub := newCarrierStub()
	stub.shipBody = successBody()
	client := newTestClient(t, stub)

	label, err := client.CreateLabel(context.Background(), validShipmentJSON())
	if err != nil {
		t.Fatalf("create label: %v", err)
	}

	if label.TrackingNumber != "1Z999AA10123456784" {
		t.Fatalf("unexpected tracking number %q", label.TrackingNumber)
	}
	if label.LabelImage != "iVBORw0KGgo=" {
		t.Fatalf("unexpected label image %q", label.LabelImage)
	}
	if label.LabelFormat != "PNG" {
		t.Fatalf("unexpected label format %q", label.LabelFormat)
	}
	if label.TotalCharges != "12.34" || label.Currency != "USD" {
		t.Fatalf("unexpected charges %q %q", label.TotalCharges, label.Currency)
	}
	if label.ShipmentID != "1ZSHIPID" {
		t.Fatalf("unexpected shipment id %q", label.ShipmentID)
	}

	if got := stub.lastShipHeaders.Get("Authorization"); got != "Bearer test-token" {
		t.Fatalf("unexpected ship Authorization %q", got)
	}
	if stub.lastShipHeaders.Get("transId") == "" {
		t.Fatal("expected a transId header")
	}
	if got := stub.lastShipHeaders.Get("transactionSrc"); got != "orobor-web" {
		t.Fatalf("unexpected transactionSrc %q", got)
	}
	// The raw payload must be forwarded unchanged.
	if string(stub.lastShipBody) != string(validShipmentJSON()) {
		t.Fatal("expected shipment payload forwarded verbatim")
	}
}

func TestCreateLabelSuccessNestedStatusField(t *testing.T) {
	stub := newCarrierStub()
	stub.shipBody = `{"ShipmentResponse":{
		"Response":{"ResponseStatus":{"Code":"1","Description":"Success"}},
		"ShipmentResults":{
			"PackageResults":[{"TrackingNumber":"1Z42","ShippingLabel":{"GraphicImage":"R0lGODlh"}}]
		}
	}}`
	client := newTestClient(t, stub)

	label, err := client.CreateLabel(context.Background(), validShipmentJSON())
	if err != nil {
		t.Fatalf("create label: %v", err)
	}
	if label.TrackingNumber != "1Z42" {
		t.Fatalf("unexpected tracking number %q", label.TrackingNumber)
	}
	if label.LabelFormat != "GIF" {
		t.Fatalf("expected default GIF format, got %q", label.LabelFormat)
	}
	if label.TotalCharges != "0.00" || label.Currency != "USD" {
		t.Fatalf("expected default charges, got %q %q", label.TotalCharges, label.Currency)
	}
}

func TestCreateLabelLegacyShape(t *testing.T) {
	stub := newCarrierStub()
	stub.shipBody = `{
		"Response":{"ResponseStatus":{"Code":"1","Description":"Success"}},
		"ShipmentResults":{"PackageResults":{"TrackingNumber":"1ZLEGACY","ShippingLabel":{"GraphicImage":"R0lGOD"}}}
	}`
	client := newTestClient(t, stub)

	label, err := client.CreateLabel(context.Background(), validShipmentJSON())
	if err != nil {
		t.Fatalf("create label: %v", err)
	}
	if label.TrackingNumber != "1ZLEGACY" {
		t.Fatalf("unexpected tracking number %q", label.TrackingNumber)
	}
}

func TestCreateLabelCarrierDeclaredFailure(t *testing.T) {
	stub := newCarrierStub()
	stub.shipBody = `{"ShipmentResponse":{"Response":{"ResponseStatus":{"Code":"0","Description":"Missing required field"}}}}`
	client := newTestClient(t, stub)

	_, err := client.CreateLabel(context.Background(), validShipmentJSON())

	var carrierErr *CarrierError
	if !errors.As(err, &carrierErr) {
		t.Fatalf("expected CarrierError, got %v", err)
	}
	if !strings.Contains(carrierErr.Message, "Missing required field") {
		t.Fatalf("expected embedded description, got %q", carrierErr.Message)
	}
}

func TestCreateLabelIncompleteSuccess(t *testing.T) {
	bodies := map[string]string{
		"no package results": `{"ShipmentResponse":{"Response":{"ResponseStatusCode":"1"},"ShipmentResults":{}}}`,
		"no tracking number": `{"ShipmentResponse":{"Response":{"ResponseStatusCode":"1"},"ShipmentResults":{"PackageResults":[{"ShippingLabel":{"GraphicImage":"abc"}}]}}}`,
		"no graphic image":   `{"ShipmentResponse":{"Response":{"ResponseStatusCode":"1"},"ShipmentResults":{"PackageResults":[{"TrackingNumber":"1Z1"}]}}}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			stub := newCarrierStub()
			stub.shipBody = body
			client := newTestClient(t, stub)

			_, err := client.CreateLabel(context.Background(), validShipmentJSON())

			var incompleteErr *IncompleteSuccessError
			if !errors.As(err, &incompleteErr) {
				t.Fatalf("expected IncompleteSuccessError, got %v", err)
			}
		})
	}
}

func TestCreateLabelUnrecognizedShape(t *testing.T) {
	stub := newCarrierStub()
	stub.shipBody = `{"totally":"unexpected"}`
	client := newTestClient(t, stub)

	_, err := client.CreateLabel(context.Background(), validShipmentJSON())

	var unrecognizedErr *UnrecognizedShapeError
	if !errors.As(err, &unrecognizedErr) {
		t.Fatalf("expected UnrecognizedShapeError, got %v", err)
	}
	if !strings.Contains(string(unrecognizedErr.Raw), "totally") {
		t.Fatalf("expected raw payload retained, got %q", unrecognizedErr.Raw)
	}
}

func TestCreateLabelCarrierHTTPError(t *testing.T) {
	stub := newCarrierStub()
	stub.shipStatus = http.StatusBadGateway
	stub.shipBody = "upstream broke"
	client := newTestClient(t, stub)

	_, err := client.CreateLabel(context.Background(), validShipmentJSON())

	var carrierErr *CarrierError
	if !errors.As(err, &carrierErr) {
		t.Fatalf("expected CarrierError, got %v", err)
	}
	if carrierErr.Status != http.StatusBadGateway {
		t.Fatalf("expected upstream status retained, got %d", carrierErr.Status)
	}
	if carrierErr.Body != "upstream broke" {
		t.Fatalf("expected upstream body retained, got %q", carrierErr.Body)
	}
}

type saverStub struct {
	err    error
	record v1.OrderRecord
	calls  int
}

func (s *saverStub) Save(req *v1.ShipmentRequest, label v1.LabelResult) (v1.OrderRecord, error) {
	s.calls++
	if s.err != nil {
		return v1.OrderRecord{}, s.err
	}
	return s.record, nil
}

func TestCreateLabelPersistenceFailureIsContained(t *testing.T) {
	stub := newCarrierStub()
	stub.shipBody = successBody()
	saver := &saverStub{err: fmt.Errorf("storage down")}
	client := newTestClient(t, stub).WithOrderSaver(saver)

	label, err := client.CreateLabel(context.Background(), validShipmentJSON())
	if err != nil {
		t.Fatalf("expected success despite save failure, got %v", err)
	}
	if saver.calls != 1 {
		t.Fatalf("expected one save attempt, got %d", saver.calls)
	}
	if label.TrackingNumber != "1Z999AA10123456784" {
		t.Fatalf("unexpected tracking number %q", label.TrackingNumber)
	}
}

type publisherStub struct {
	topics []string
	err    error
}

func (p *publisherStub) PublishEvent(topic string, data any) error {
	p.topics = append(p.topics, topic)
	return p.err
}

func TestCreateLabelPublishesEventAfterSave(t *testing.T) {
	stub := newCarrierStub()
	stub.shipBody = successBody()
	saver := &saverStub{record: v1.OrderRecord{ID: "order-1", TrackingNumber: "1Z999AA10123456784"}}
	events := &publisherStub{}
	client := newTestClient(t, stub).WithOrderSaver(saver).WithEventPublisher(events)

	if _, err := client.CreateLabel(context.Background(), validShipmentJSON()); err != nil {
		t.Fatalf("create label: %v", err)
	}
	if len(events.topics) != 1 || events.topics[0] != "LabelCreated" {
		t.Fatalf("expected one LabelCreated event, got %v", events.topics)
	}
}

func TestCreateLabelPublishFailureIsContained(t *testing.T) {
	stub := newCarrierStub()
	stub.shipBody = successBody()
	saver := &saverStub{record: v1.OrderRecord{ID: "order-1"}}
	events := &publisherStub{err: fmt.Errorf("broker down")}
	client := newTestClient(t, stub).WithOrderSaver(saver).WithEventPublisher(events)

	if _, err := client.CreateLabel(context.Background(), validShipmentJSON()); err != nil {
		t.Fatalf("expected success despite publish failure, got %v", err)
	}
}
