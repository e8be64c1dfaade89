package integration

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fjacquet/cfdi-sentinel/internal/common"
	"fjacquet/cfdi-sentinel/internal/config"
	"fjacquet/cfdi-sentinel/internal/container"
	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/models"
	"fjacquet/cfdi-sentinel/internal/report"
	"fjacquet/cfdi-sentinel/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invoiceTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" Version="4.0" Fecha="2023-05-10T12:30:45"
    SubTotal="100.00" Total="116.00" Moneda="MXN" TipoDeComprobante="I" FormaPago="03" MetodoPago="PUE">
  <cfdi:Emisor Rfc="{{RFC}}" Nombre="Proveedor SA" RegimenFiscal="601"/>
  <cfdi:Receptor Rfc="BBB010101BBB" Nombre="Cliente SA" DomicilioFiscalReceptor="06600"
      RegimenFiscalReceptor="601" UsoCFDI="G03"/>
  <cfdi:Conceptos>
    <cfdi:Concepto ClaveProdServ="43211500" Importe="100.00" Descripcion="Laptop" ObjetoImp="02">
      <cfdi:Impuestos>
        <cfdi:Traslados>
          <cfdi:Traslado Base="100.00" Impuesto="002" TipoFactor="Tasa" TasaOCuota="0.160000" Importe="16.00"/>
        </cfdi:Traslados>
      </cfdi:Impuestos>
    </cfdi:Concepto>
  </cfdi:Conceptos>
  <cfdi:Complemento>
    <tfd:TimbreFiscalDigital xmlns:tfd="http://www.sat.gob.mx/TimbreFiscalDigital" Version="1.1"
        UUID="{{UUID}}" FechaTimbrado="2023-05-10T12:31:00"/>
  </cfdi:Complemento>
</cfdi:Comprobante>`

func invoice(rfc, uuid string) string {
	return strings.NewReplacer("{{RFC}}", rfc, "{{UUID}}", uuid).Replace(invoiceTemplate)
}

func newContainer(t *testing.T, denylistCSV string) *container.Container {
	t.Helper()
	cfg := &config.Config{
		Log:         config.LogConfig{Level: "info", Format: "text"},
		Batch:       config.BatchConfig{Size: 2, TimeoutSeconds: 5, Company: "ACME"},
		Engine:      config.EngineConfig{RejectUnknownVersions: true},
		Cache:       config.CacheConfig{Backend: config.BackendMemory},
		Denylist:    config.DenylistConfig{Backend: config.BackendMemory, CSVFile: denylistCSV, CSVList: "69B"},
		History:     config.HistoryConfig{Backend: config.BackendNone},
		Materiality: config.MaterialityConfig{Enabled: true},
		Export:      config.ExportConfig{Delimiter: ","},
		Server:      config.ServerConfig{MaxBodyBytes: 1 << 20},
	}
	c, err := container.NewContainerWithLogger(context.Background(), cfg, logging.NewMockLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func readHeader(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	r := csv.NewReader(f)
	r.Comma = ';'
	header, err := r.Read()
	require.NoError(t, err)
	return header
}

// Every run produces the same CSV columns whatever the documents contain.
func TestPipeline_ConsistentCSVColumns(t *testing.T) {
	c := newContainer(t, "")
	sets := map[string]map[string]string{
		"valid":   {"a.xml": invoice("AAA010101AAA", "11111111-1111-1111-1111-111111111111")},
		"broken":  {"b.xml": "<broken"},
		"not xml": {"c.xml": "not xml at all"},
	}

	var headers [][]string
	for name, files := range sets {
		t.Run(name, func(t *testing.T) {
			inputs, err := source.NewDirectorySource(writeFiles(t, files), "", logging.NewMockLogger()).Load(context.Background())
			require.NoError(t, err)
			run, err := c.GetOrchestrator().Run(context.Background(), inputs, c.BatchOptions())
			require.NoError(t, err)

			out := filepath.Join(t.TempDir(), "out.csv")
			require.NoError(t, report.WriteCSVFile(out, run.Results, ';', logging.NewMockLogger()))
			headers = append(headers, readHeader(t, out))
		})
	}

	require.Len(t, headers, len(sets))
	for _, h := range headers[1:] {
		assert.Equal(t, headers[0], h)
	}
	assert.Equal(t, "Archivo_XML", headers[0][0])
	assert.Equal(t, "Observaciones_Tecnicas", headers[0][len(headers[0])-1])
}

func TestPipeline_DenylistedIssuerAndDuplicates(t *testing.T) {
	csvFile := filepath.Join(t.TempDir(), "69b.csv")
	require.NoError(t, os.WriteFile(csvFile, []byte(
		"RFC,Nombre del Contribuyente,Situación del contribuyente,Lista,Fecha de publicación\n"+
			"CCC010101CCC,Factureras SA,Definitivo,,2021-03-01\n"), 0o600))
	c := newContainer(t, csvFile)

	dir := writeFiles(t, map[string]string{
		"1_clean.xml":  invoice("AAA010101AAA", "11111111-1111-1111-1111-111111111111"),
		"2_listed.xml": invoice("CCC010101CCC", "22222222-2222-2222-2222-222222222222"),
		"3_copy.xml":   invoice("AAA010101AAA", "11111111-1111-1111-1111-111111111111"),
		"4_broken.xml": "<broken",
	})
	inputs, err := source.NewDirectorySource(dir, "", logging.NewMockLogger()).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, inputs, 4)

	run, err := c.GetOrchestrator().Run(context.Background(), inputs, c.BatchOptions())
	require.NoError(t, err)
	require.Len(t, run.Results, 4)

	byFile := map[string]models.Result{}
	for _, r := range run.Results {
		byFile[r.FileName] = r
	}
	assert.Equal(t, models.OutcomeUsable, byFile["1_clean.xml"].Outcome)
	assert.Equal(t, models.OutcomeNotUsable, byFile["2_listed.xml"].Outcome)
	assert.Equal(t, "69B (Definitivo)", byFile["2_listed.xml"].DenylistIssuer)
	assert.Equal(t, models.OutcomeNotUsable, byFile["4_broken.xml"].Outcome)
	assert.Equal(t, []string{"11111111-1111-1111-1111-111111111111"}, run.Duplicates)

	data, err := c.GetReportGenerator().Generate(report.NewRunReport(run), report.FormatXML)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<runReport")
	assert.Contains(t, string(data), run.ID)
}

// A document gets the same verdict through the HTTP API and through a batch.
func TestPipeline_APIMatchesBatch(t *testing.T) {
	c := newContainer(t, "")
	doc := invoice("AAA010101AAA", "33333333-3333-3333-3333-333333333333")

	inputs, err := source.NewDirectorySource(writeFiles(t, map[string]string{"doc.xml": doc}), "", nil).Load(context.Background())
	require.NoError(t, err)
	run, err := c.GetOrchestrator().Run(context.Background(), inputs, c.BatchOptions())
	require.NoError(t, err)
	require.Len(t, run.Results, 1)
	fromBatch := run.Results[0]

	rec := httptest.NewRecorder()
	c.NewAPIServer().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/validate?file=doc.xml", strings.NewReader(doc)))
	require.Equal(t, http.StatusOK, rec.Code)
	var fromAPI models.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fromAPI))

	assert.Equal(t, fromBatch.FileName, fromAPI.FileName)
	assert.Equal(t, fromBatch.UUID, fromAPI.UUID)
	assert.Equal(t, fromBatch.Outcome, fromAPI.Outcome)
	assert.Equal(t, fromBatch.Score, fromAPI.Score)
	assert.Equal(t, fromBatch.Label, fromAPI.Label)
	assert.True(t, fromBatch.Computed.Equal(fromAPI.Computed))

	rows, err := common.ReadCSV[report.Row](strings.NewReader(csvOf(t, run.Results)), ',')
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, fromAPI.Label, rows[0].Label)
}

func csvOf(t *testing.T, results []models.Result) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf, results, ','))
	return buf.String()
}
