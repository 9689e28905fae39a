package wrapper

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/docingest/internal/xfa"
)

// structureReader answers structural questions from a pdfcpu context
type structureReader struct {
	ctx *model.Context
}

func openStructure(path string) (*structureReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &WrapperError{Library: LibraryPDFCPU, Op: "open", Err: err}
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "open",
			Err:     fmt.Errorf("failed to read PDF context: %w", err),
		}
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "open",
			Err:     fmt.Errorf("failed to ensure page count: %w", err),
		}
	}

	return &structureReader{ctx: ctx}, nil
}

func (s *structureReader) pageCount() int {
	return s.ctx.PageCount
}

// xfaEntry returns the XFA entry of the AcroForm dictionary, if any
func (s *structureReader) xfaEntry() (types.Object, error) {
	rootDict, err := s.ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroFormDict, err := s.ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return nil, nil
	}

	xfaObj, found := acroFormDict.Find("XFA")
	if !found {
		return nil, nil
	}
	return xfaObj, nil
}

func (s *structureReader) hasXFA() bool {
	obj, err := s.xfaEntry()
	return err == nil && obj != nil
}

// xfaStreams collects the XML packets of the form. The XFA entry is either a
// single stream or an array alternating packet names and streams.
func (s *structureReader) xfaStreams() (xfa.Blob, error) {
	obj, err := s.xfaEntry()
	if err != nil || obj == nil {
		return nil, wrapFormError(err)
	}

	resolved, err := s.ctx.Dereference(obj)
	if err != nil {
		return nil, wrapFormError(fmt.Errorf("failed to dereference XFA entry: %w", err))
	}

	arr, isArray := resolved.(types.Array)
	if !isArray {
		data, err := s.streamContent(obj)
		if err != nil {
			return nil, wrapFormError(err)
		}
		return xfa.Blob{data}, nil
	}

	var blob xfa.Blob
	for i, item := range arr {
		if _, isName := item.(types.StringLiteral); isName {
			continue
		}
		if _, isHex := item.(types.HexLiteral); isHex {
			continue
		}
		data, err := s.streamContent(item)
		if err != nil {
			return nil, wrapFormError(fmt.Errorf("packet %d: %w", i, err))
		}
		if data != nil {
			blob = append(blob, data)
		}
	}
	return blob, nil
}

func (s *structureReader) streamContent(obj types.Object) ([]byte, error) {
	sd, valid, err := s.ctx.DereferenceStreamDict(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference XFA stream: %w", err)
	}
	if !valid || sd == nil {
		return nil, nil
	}
	if err := sd.Decode(); err != nil {
		return nil, fmt.Errorf("failed to decode XFA stream: %w", err)
	}
	return sd.Content, nil
}

func wrapFormError(err error) error {
	if err == nil {
		return nil
	}
	return &WrapperError{Library: LibraryPDFCPU, Op: "form_xml", Err: err}
}
