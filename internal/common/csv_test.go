package common

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fjacquet/cfdi-sentinel/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCSVRow struct {
	RFC    string `csv:"RFC"`
	Name   string `csv:"Nombre"`
	Status string `csv:"Situacion"`
}

func TestReadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.csv")
	content := "RFC,Nombre,Situacion\nAAA010101AAA,Empresa Uno,Definitivo\nBBB010101BBB,\"Empresa, Dos\",Presunto\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	logger := logging.NewMockLogger()
	rows, err := ReadCSVFile[testCSVRow](path, ',', logger)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "AAA010101AAA", rows[0].RFC)
	assert.Equal(t, "Empresa, Dos", rows[1].Name)
	assert.True(t, logger.HasEntry("INFO", "Successfully read CSV data"))
}

func TestReadCSVFile_Missing(t *testing.T) {
	_, err := ReadCSVFile[testCSVRow](filepath.Join(t.TempDir(), "nope.csv"), ',', nil)
	assert.Error(t, err)
}

func TestReadCSV_Semicolon(t *testing.T) {
	rows, err := ReadCSV[testCSVRow](strings.NewReader("RFC;Nombre;Situacion\nAAA010101AAA;Uno;Definitivo\n"), ';')
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Definitivo", rows[0].Status)
}

func TestWriteCSV_RoundTripWithDelimiter(t *testing.T) {
	var buf bytes.Buffer
	in := []testCSVRow{{RFC: "AAA010101AAA", Name: "Uno", Status: "Definitivo"}}

	require.NoError(t, WriteCSV(&buf, in, ';'))
	assert.True(t, strings.HasPrefix(buf.String(), "RFC;Nombre;Situacion\n"))

	out, err := ReadCSV[testCSVRow](&buf, ';')
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")

	require.NoError(t, WriteCSVFile(path, []testCSVRow{{RFC: "X"}}, ',', nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "RFC,Nombre,Situacion")

	assert.Error(t, WriteCSVFile[testCSVRow](path, nil, ',', nil))
}

func TestParseDelimiter(t *testing.T) {
	assert.Equal(t, ';', ParseDelimiter(";"))
	assert.Equal(t, '\t', ParseDelimiter("\t"))
	assert.Equal(t, DefaultDelimiter, ParseDelimiter(""))
}
