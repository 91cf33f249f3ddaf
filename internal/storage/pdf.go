package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/jung-kurt/gofpdf/v2"
	"go.uber.org/zap"
)

// findNotoFont returns the absolute path to the bundled Noto Sans SC font,
// or "" when it is not present. Transcripts in CJK languages need it.
func findNotoFont() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	fontPath := filepath.Join(cwd, "static", "fonts", "NotoSansSC-Regular.ttf")
	if _, err := os.Stat(fontPath); err != nil {
		return ""
	}

	absPath, err := filepath.Abs(fontPath)
	if err != nil {
		return ""
	}

	return absPath
}

// newTranscriptDocument creates an A4 document and picks the font family.
// Falls back to Times when the Unicode font is not bundled.
func newTranscriptDocument() (*gofpdf.Fpdf, string) {
	fontPath := findNotoFont()
	if fontPath == "" {
		logger.Base().Debug("Noto font not found, transcript export uses Times")
		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()
		return pdf, "Times"
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		SizeStr:        "A4",
		FontDirStr:     filepath.ToSlash(filepath.Dir(fontPath)),
	})
	pdf.AddPage()
	pdf.AddUTF8Font("NotoSansSC", "", filepath.Base(fontPath))
	logger.Base().Debug("Transcript export uses Noto Sans SC", zap.String("font_path", fontPath))
	return pdf, "NotoSansSC"
}

// TranscriptPDFFilename returns the download filename for a call transcript.
func TranscriptPDFFilename(call *domain.Call) string {
	return fmt.Sprintf("call_%s_transcript.pdf", call.CallID)
}

// WriteTranscriptPDF renders the transcript of a call as a PDF document.
// Messages must already be in chronological order.
func WriteTranscriptPDF(call *domain.Call, messages []*domain.CallMessage, writer io.Writer) error {
	if call == nil {
		return fmt.Errorf("call cannot be nil")
	}

	pdf, fontFamily := newTranscriptDocument()

	pdf.SetFont(fontFamily, "", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Call Transcript %s", call.CallID), "", 1, "", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont(fontFamily, "", 10)
	for _, line := range transcriptSummaryLines(call, len(messages)) {
		pdf.CellFormat(0, 6, line, "", 1, "", false, 0, "")
	}
	pdf.Ln(6)

	if len(messages) == 0 {
		pdf.SetFont(fontFamily, "", 12)
		pdf.MultiCell(0, 8, "No transcript messages were recorded for this call.", "", "", false)
	}

	for _, message := range messages {
		if message == nil || strings.TrimSpace(message.Content) == "" {
			continue
		}

		pdf.SetFont(fontFamily, "", 9)
		pdf.CellFormat(0, 5, transcriptMessageHeading(call, message), "", 1, "", false, 0, "")

		pdf.SetFont(fontFamily, "", 12)
		pdf.MultiCell(0, 7, message.Content, "", "", false)
		pdf.Ln(2)
	}

	pdf.SetFont("Arial", "I", 8)
	pdf.SetY(-15)
	pdf.SetX(0)
	pdf.CellFormat(0, 10, fmt.Sprintf("Generated on %s", time.Now().Format("2006-01-02 15:04:05")), "", 0, "C", false, 0, "")

	if err := pdf.Output(writer); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}

	logger.Base().Info("Transcript PDF generated", zap.String("call_id", call.CallID), zap.Int("messages", len(messages)))
	return nil
}

// transcriptSummaryLines builds the header block above the messages.
func transcriptSummaryLines(call *domain.Call, messageCount int) []string {
	lines := []string{
		fmt.Sprintf("Tenant: %s", call.TenantID),
		fmt.Sprintf("Direction: %s    Status: %s    Language: %s", call.Direction, call.Status, call.Language),
	}

	if call.FromNumber != "" || call.ToNumber != "" {
		lines = append(lines, fmt.Sprintf("From: %s    To: %s", call.FromNumber, call.ToNumber))
	}

	lines = append(lines, fmt.Sprintf("Started: %s", call.StartedAt.Format("2006-01-02 15:04:05 MST")))
	if !call.EndedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("Ended: %s    Duration: %ds",
			call.EndedAt.Format("2006-01-02 15:04:05 MST"), call.DurationSeconds()))
	}

	lines = append(lines, fmt.Sprintf("Messages: %d", messageCount))
	return lines
}

// transcriptMessageHeading renders the "[mm:ss] SENDER" line above a message.
// The audio boundary is preferred over row creation time when present.
func transcriptMessageHeading(call *domain.Call, message *domain.CallMessage) string {
	var offset time.Duration
	if message.AudioStartMs > 0 {
		offset = time.Duration(message.AudioStartMs) * time.Millisecond
	} else if !message.CreatedAt.IsZero() && message.CreatedAt.After(call.StartedAt) {
		offset = message.CreatedAt.Sub(call.StartedAt)
	}

	sender := string(message.Sender)
	if sender == "" {
		sender = "unknown"
	}

	minutes := int(offset.Minutes())
	seconds := int(offset.Seconds()) % 60
	return fmt.Sprintf("[%02d:%02d] %s", minutes, seconds, strings.ToUpper(sender))
}
