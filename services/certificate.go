package services

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"project-report-api/models"

	"github.com/go-pdf/fpdf"
)

// CertificateFilename is the fixed name used for the mailed attachment and the
// HTTP download.
const CertificateFilename = "certificate.pdf"

// CertificateRenderer turns an approved report into a completion certificate
// PDF. Rendering is pure: no I/O, no stored state, and byte-identical output
// for the same report and clock. Compression stays off so the textual content
// is verifiable in the produced bytes.
type CertificateRenderer struct {
	Institution string
	Department  string
	Address     string

	// Now supplies the issuance date. Tests inject a fixed clock; production
	// uses time.Now.
	Now func() time.Time
}

// NewCertificateRenderer builds a renderer from the environment with defaults
// for the institutional header block.
func NewCertificateRenderer() *CertificateRenderer {
	r := &CertificateRenderer{
		Institution: os.Getenv("CERT_INSTITUTION"),
		Department:  os.Getenv("CERT_DEPARTMENT"),
		Address:     os.Getenv("CERT_ADDRESS"),
		Now:         time.Now,
	}
	if r.Institution == "" {
		r.Institution = "NANASAHEB MAHADIK COLLEGE OF ENGINEERING"
	}
	if r.Department == "" {
		r.Department = "Department of Computer Science & Engineering"
	}
	if r.Address == "" {
		r.Address = "Gat No. 894 / 2665, Pune - Banglore (NH4) Highway,\nAt Post: Peth Naka, Tal: Walwa, Dist: Sangli. Pin - 415 407"
	}
	return r
}

// Render produces the certificate document for an approved report. A report in
// any other state fails the approval gate with ErrPrecondition and nothing is
// rendered.
func (r *CertificateRenderer) Render(report *models.Report) ([]byte, error) {
	if report.ReviewStatus != models.StatusApproved {
		return nil, fmt.Errorf("%w: report is not approved", ErrPrecondition)
	}

	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetTitle("Certificate of Completion", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()

	// Outer border
	pdf.SetDrawColor(26, 35, 126)
	pdf.SetLineWidth(0.8)
	pdf.Rect(7, 7, pageW-14, pageH-14, "D")

	// Institution header block
	pdf.SetY(36)
	pdf.SetFont("Helvetica", "BU", 16)
	pdf.SetTextColor(13, 71, 161)
	pdf.MultiCell(0, 8, r.Institution, "", "C", false)
	pdf.Ln(1)
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 6, r.Department, "", "C", false)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(68, 68, 68)
	pdf.MultiCell(0, 4, r.Address, "", "C", false)

	pdf.Ln(14)
	pdf.SetFont("Helvetica", "BU", 22)
	pdf.SetTextColor(74, 20, 140)
	pdf.MultiCell(0, 10, "Certificate of Completion", "", "C", false)

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 13)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 7, "This certificate is proudly presented to", "", "C", false)
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "BU", 18)
	pdf.SetTextColor(27, 94, 32)
	pdf.MultiCell(0, 9, report.StudentName, "", "C", false)
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 13)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 7, "for successfully completing the project titled", "", "C", false)
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 14)
	pdf.SetTextColor(106, 27, 154)
	pdf.MultiCell(0, 8, fmt.Sprintf("%q", report.ProjectTitle), "", "C", false)

	pdf.Ln(14)
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(51, 51, 51)
	pdf.MultiCell(0, 7, "Date: "+now.Format("02 January 2006"), "", "C", false)

	// Three signature placeholders along the bottom
	sigY := pageH - 60.0
	colW := (pageW - 20) / 3
	labels := []string{"HOD Signature", "Coordinator Signature", "Principal Signature"}
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for i, label := range labels {
		x := 10 + float64(i)*colW
		pdf.SetXY(x, sigY)
		pdf.CellFormat(colW, 5, "_______________________", "", 0, "C", false, 0, "")
		pdf.SetXY(x, sigY+7)
		pdf.CellFormat(colW, 5, label, "", 0, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
