package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData carries everything rendered onto a clearance certificate.
type CertificateData struct {
	Institution       string
	StudentName       string
	StudentID         string
	CertificateNumber string
	IssuedAt          time.Time
}

// CertificateRenderer produces clearance certificate PDFs.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a certificate renderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render creates the certificate document for a completed clearance request.
func (r *CertificateRenderer) Render(data CertificateData) ([]byte, error) {
	if data.CertificateNumber == "" {
		return nil, fmt.Errorf("certificate number required")
	}
	if data.StudentID == "" {
		return nil, fmt.Errorf("student id required")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	if data.Institution != "" {
		pdf.SetFont("Arial", "B", 18)
		pdf.CellFormat(0, 12, data.Institution, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	pdf.SetFont("Arial", "B", 24)
	pdf.CellFormat(0, 14, "CERTIFICATE OF CLEARANCE", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	name := data.StudentName
	if name == "" {
		name = data.StudentID
	}
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, name, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("(Student ID: %s)", data.StudentID), "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.MultiCell(0, 7, "has satisfied all clearance requirements of the academic departments, the library, the cashier, and the registrar, and holds no outstanding obligations to the institution.", "", "C", false)
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Certificate No: %s", data.CertificateNumber), "", 1, "C", false, 0, "")
	issued := data.IssuedAt
	if issued.IsZero() {
		issued = time.Now().UTC()
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued: %s", issued.Format("2 January 2006")), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
