package satstatus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/xmlutils"

	"github.com/shopspring/decimal"
)

const (
	// DefaultEndpoint is the public SAT consultation service.
	DefaultEndpoint = "https://consultaqr.facturaelectronica.sat.gob.mx/ConsultaCFDIService.svc"
	// DefaultTimeout bounds one SOAP call.
	DefaultTimeout = 10 * time.Second

	soapAction = "http://tempuri.org/IConsultaCFDIService/Consulta"

	// maxResponseBytes caps the response read from the service.
	maxResponseBytes = 1 << 20
)

const envelope = `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:tem="http://tempuri.org/">
   <soapenv:Header/>
   <soapenv:Body>
      <tem:Consulta>
         <tem:expresionImpresa><![CDATA[%s]]></tem:expresionImpresa>
      </tem:Consulta>
   </soapenv:Body>
</soapenv:Envelope>`

// Client is the SOAP client for ConsultaCFDIService.
type Client struct {
	endpoint string
	http     *http.Client
	xpaths   xmlutils.SATConsulta
	logger   logging.Logger
	now      func() time.Time
}

// NewClient creates a client. Zero values select the defaults.
func NewClient(endpoint string, timeout time.Duration, logger logging.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		xpaths:   xmlutils.DefaultSATConsultaXPaths(),
		logger:   logging.OrDefault(logger),
		now:      time.Now,
	}
}

// Expression builds the expresionImpresa of the printed representation.
func Expression(uuid, issuerRFC, receiverRFC string, total decimal.Decimal) string {
	return fmt.Sprintf("?re=%s&rr=%s&tt=%s&id=%s", issuerRFC, receiverRFC, total.StringFixed(6), uuid)
}

// Check implements Checker. Transport failures are returned as errors; any
// state other than Vigente or Cancelado is reported as No Encontrado.
func (c *Client) Check(ctx context.Context, uuid, issuerRFC, receiverRFC string, total decimal.Decimal) (Status, error) {
	body := fmt.Sprintf(envelope, Expression(uuid, issuerRFC, receiverRFC, total))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return Status{}, fmt.Errorf("build SAT request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapAction)

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("SAT request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Status{}, fmt.Errorf("read SAT response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("SAT responded HTTP %d", resp.StatusCode)
	}

	status, err := c.decode(data)
	if err != nil {
		return Status{}, err
	}
	c.logger.WithFields(
		logging.Field{Key: logging.FieldUUID, Value: uuid},
		logging.Field{Key: logging.FieldStatus, Value: string(status.State)},
		logging.Field{Key: logging.FieldDuration, Value: c.now().Sub(start).String()},
	).Debug("SAT status retrieved")
	return status, nil
}

func (c *Client) decode(data []byte) (Status, error) {
	root, err := xmlutils.ParseBytes(data)
	if err != nil {
		return Status{}, fmt.Errorf("decode SAT response: %w", err)
	}
	if fault := xmlutils.First(root, c.xpaths.Fault); fault != "" {
		return Status{}, fmt.Errorf("SAT fault: %s", fault)
	}

	status := Status{
		State:              State(xmlutils.First(root, c.xpaths.Estado)),
		StatusCode:         xmlutils.First(root, c.xpaths.CodigoEstatus),
		Cancelable:         xmlutils.First(root, c.xpaths.EsCancelable),
		CancellationStatus: xmlutils.First(root, c.xpaths.EstatusCancelacion),
		EFOSValidation:     xmlutils.First(root, c.xpaths.ValidacionEFOS),
		ValidatedAt:        c.now(),
	}
	if status.State != StateValid && status.State != StateCancelled {
		status.State = StateNotFound
	}
	return status, nil
}
