package filestore

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/astrogo/fitsio"
)

// Saver writes one captured value to a file.  Spec names the on-disk format
// in resource documents; Ext is the file extension.
type Saver interface {
	Spec() string
	Ext() string
	Save(path string, v interface{}) error
}

// CSVSaver writes float buffers one sample per row.
type CSVSaver struct{}

func (CSVSaver) Spec() string { return "CSV_SEQ" }
func (CSVSaver) Ext() string  { return "csv" }

func (CSVSaver) Save(path string, v interface{}) error {
	arr, ok := v.([]float64)
	if !ok {
		return fmt.Errorf("csv saver: want []float64, got %T", v)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	for _, s := range arr {
		if err := w.Write([]string{strconv.FormatFloat(s, 'G', -1, 64)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// FITSSaver writes float buffers as a one-dimensional 64-bit image HDU.
type FITSSaver struct{}

func (FITSSaver) Spec() string { return "FITS_SEQ" }
func (FITSSaver) Ext() string  { return "fits" }

func (FITSSaver) Save(path string, v interface{}) error {
	arr, ok := v.([]float64)
	if !ok {
		return fmt.Errorf("fits saver: want []float64, got %T", v)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fits, err := fitsio.Create(f)
	if err != nil {
		return err
	}
	defer fits.Close()
	im := fitsio.NewImage(-64, []int{len(arr)})
	defer im.Close()
	if err := im.Write(arr); err != nil {
		return err
	}
	return fits.Write(im)
}

// PNGSaver writes instrument-rendered screen dumps, which arrive as
// already-encoded PNG bytes.
type PNGSaver struct{}

func (PNGSaver) Spec() string { return "PNG_SEQ" }
func (PNGSaver) Ext() string  { return "png" }

func (PNGSaver) Save(path string, v interface{}) error {
	raw, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("png saver: want []byte, got %T", v)
	}
	return os.WriteFile(path, raw, 0644)
}
