package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Form makes the agreement fillable: an "accepted" checkbox and a submit button that posts
// the fields as FDF to SubmitURL. DocumentID and Token travel as hidden read-only fields.
type Form struct {
	SubmitURL  string
	DocumentID string
	Token      string
}

// Names of the submitted fields.
const (
	FieldDocumentID = "doc_id"
	FieldToken      = "token"
	FieldAccepted   = "accepted"

	// AcceptedOn is the checkbox export value when ticked.
	AcceptedOn = "Yes"
)

var ErrMalformedOutput = errors.New("pdf: unexpected document structure")

// rect is in PDF user space: origin bottom left, points.
type rect struct{ x1, y1, x2, y2 float64 }

func (r rect) String() string {
	return fmt.Sprintf("%.2f %.2f %.2f %.2f", r.x1, r.y1, r.x2, r.y2)
}

type formLayout struct {
	page     int // 1-based
	checkbox rect
	submit   rect
}

var (
	reStartXref = regexp.MustCompile(`startxref\s+(\d+)\s+%%EOF\s*$`)
	reRoot      = regexp.MustCompile(`/Root (\d+) 0 R`)
	reInfo      = regexp.MustCompile(`/Info (\d+) 0 R`)
	reSize      = regexp.MustCompile(`/Size (\d+)`)
	reKids      = regexp.MustCompile(`/Kids \[([^\]]*)\]`)
	reRef       = regexp.MustCompile(`(\d+) 0 R`)
)

// attachForm appends an incremental update to doc that adds the form fields, their widgets
// on the laid-out page and the AcroForm entry in the catalog. The original bytes are kept
// untouched, so the document still opens in viewers that ignore forms.
func attachForm(doc []byte, f Form, l formLayout) ([]byte, error) {
	m := reStartXref.FindSubmatch(doc)
	if m == nil {
		return nil, fmt.Errorf("%w: no startxref", ErrMalformedOutput)
	}
	prevXref, _ := strconv.Atoi(string(m[1]))
	offsets, err := xrefOffsets(doc, prevXref)
	if err != nil {
		return nil, err
	}

	trailerAt := bytes.LastIndex(doc, []byte("trailer"))
	if trailerAt < 0 {
		return nil, fmt.Errorf("%w: no trailer", ErrMalformedOutput)
	}
	trailer := doc[trailerAt:]
	size, err := submatchInt(reSize, trailer)
	if err != nil {
		return nil, err
	}
	root, err := submatchInt(reRoot, trailer)
	if err != nil {
		return nil, err
	}
	info, infoErr := submatchInt(reInfo, trailer)

	pages, err := object(doc, offsets, 1)
	if err != nil {
		return nil, err
	}
	km := reKids.FindStringSubmatch(pages)
	if km == nil {
		return nil, fmt.Errorf("%w: no page tree", ErrMalformedOutput)
	}
	kids := reRef.FindAllStringSubmatch(km[1], -1)
	if l.page < 1 || l.page > len(kids) {
		return nil, fmt.Errorf("%w: page %d out of range", ErrMalformedOutput, l.page)
	}
	pageNum, _ := strconv.Atoi(kids[l.page-1][1])
	page, err := object(doc, offsets, pageNum)
	if err != nil {
		return nil, err
	}
	catalog, err := object(doc, offsets, root)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(page, "<<") || !strings.HasPrefix(catalog, "<<") {
		return nil, fmt.Errorf("%w: page or catalog is not a dictionary", ErrMalformedOutput)
	}

	next := size
	alloc := func() int { n := next; next++; return n }
	var (
		fontN  = alloc()
		idN    = alloc()
		tokN   = alloc()
		boxN   = alloc()
		onN    = alloc()
		offN   = alloc()
		submit = alloc()
		formN  = alloc()
	)

	var out bytes.Buffer
	out.Grow(len(doc) + 4096)
	out.Write(doc)
	if !bytes.HasSuffix(doc, []byte("\n")) {
		out.WriteByte('\n')
	}
	written := map[int]int{}
	put := func(n int, body string) {
		written[n] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", n, body)
	}
	putStream := func(n int, dict, data string) {
		written[n] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n<<%s /Length %d>>\nstream\n%s\nendstream\nendobj\n", n, dict, len(data), data)
	}

	put(fontN, "<</Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding>>")
	hidden := func(n int, name, value string) {
		put(n, fmt.Sprintf("<</Type /Annot /Subtype /Widget /FT /Tx /T %s /V %s /Ff 1 /F 2 /Rect [0 0 0 0] /P %d 0 R /DA (/Helv 0 Tf 0 g)>>",
			pdfString(name), pdfString(value), pageNum))
	}
	hidden(idN, FieldDocumentID, f.DocumentID)
	hidden(tokN, FieldToken, f.Token)

	w, h := l.checkbox.x2-l.checkbox.x1, l.checkbox.y2-l.checkbox.y1
	bbox := fmt.Sprintf("/Type /XObject /Subtype /Form /BBox [0 0 %.2f %.2f]", w, h)
	putStream(onN, bbox, fmt.Sprintf("0.157 0.655 0.271 rg 3 3 %.2f %.2f re f", w-6, h-6))
	putStream(offN, bbox, "")
	put(boxN, fmt.Sprintf("<</Type /Annot /Subtype /Widget /FT /Btn /T %s /V /Off /AS /Off /F 4 /Rect [%s] /P %d 0 R /AP <</N <</%s %d 0 R /Off %d 0 R>>>>>>",
		pdfString(FieldAccepted), l.checkbox, pageNum, AcceptedOn, onN, offN))

	// flags 0: FDF export of every field
	put(submit, fmt.Sprintf("<</Type /Annot /Subtype /Widget /FT /Btn /Ff 65536 /T (submit) /F 4 /Rect [%s] /P %d 0 R /A <</S /SubmitForm /F <</FS /URL /F %s>> /Flags 0>>>>",
		l.submit, pageNum, pdfString(f.SubmitURL)))

	put(formN, fmt.Sprintf("<</Fields [%d 0 R %d 0 R %d 0 R %d 0 R] /NeedAppearances true /DA (/Helv 0 Tf 0 g) /DR <</Font <</Helv %d 0 R>>>>>>",
		idN, tokN, boxN, submit, fontN))

	annots := fmt.Sprintf("%d 0 R %d 0 R %d 0 R %d 0 R", idN, tokN, boxN, submit)
	if i := strings.Index(page, "/Annots ["); i >= 0 {
		i += len("/Annots [")
		page = page[:i] + annots + " " + page[i:]
	} else {
		page = "<</Annots [" + annots + "]\n" + page[2:]
	}
	put(pageNum, page)
	put(root, fmt.Sprintf("<</AcroForm %d 0 R\n%s", formN, catalog[2:]))

	xrefAt := out.Len()
	out.WriteString("xref\n0 1\n0000000000 65535 f \n")
	nums := make([]int, 0, len(written))
	for n := range written {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	for _, n := range nums {
		fmt.Fprintf(&out, "%d 1\n%010d 00000 n \n", n, written[n])
	}
	fmt.Fprintf(&out, "trailer\n<</Size %d /Root %d 0 R", next, root)
	if infoErr == nil {
		fmt.Fprintf(&out, " /Info %d 0 R", info)
	}
	fmt.Fprintf(&out, " /Prev %d>>\nstartxref\n%d\n%%%%EOF\n", prevXref, xrefAt)
	return out.Bytes(), nil
}

// xrefOffsets reads a classic single-section cross-reference table.
func xrefOffsets(doc []byte, at int) (map[int]int, error) {
	if at <= 0 || at >= len(doc) || !bytes.HasPrefix(doc[at:], []byte("xref")) {
		return nil, fmt.Errorf("%w: bad xref offset", ErrMalformedOutput)
	}
	lines := strings.Split(string(doc[at:]), "\n")
	if len(lines) < 3 {
		return nil, fmt.Errorf("%w: short xref", ErrMalformedOutput)
	}
	var first, count int
	if _, err := fmt.Sscanf(lines[1], "%d %d", &first, &count); err != nil {
		return nil, fmt.Errorf("%w: xref header: %v", ErrMalformedOutput, err)
	}
	if len(lines) < 2+count {
		return nil, fmt.Errorf("%w: truncated xref", ErrMalformedOutput)
	}
	out := make(map[int]int, count)
	for i := 0; i < count; i++ {
		fields := strings.Fields(lines[2+i])
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: xref entry %d", ErrMalformedOutput, first+i)
		}
		if fields[2] != "n" {
			continue
		}
		off, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: xref entry %d", ErrMalformedOutput, first+i)
		}
		out[first+i] = off
	}
	return out, nil
}

// object returns the body of object n without the obj/endobj wrapper.
func object(doc []byte, offsets map[int]int, n int) (string, error) {
	off, ok := offsets[n]
	if !ok || off >= len(doc) {
		return "", fmt.Errorf("%w: object %d missing", ErrMalformedOutput, n)
	}
	head := fmt.Sprintf("%d 0 obj", n)
	rest := doc[off:]
	if !bytes.HasPrefix(rest, []byte(head)) {
		return "", fmt.Errorf("%w: object %d not at its offset", ErrMalformedOutput, n)
	}
	end := bytes.Index(rest, []byte("endobj"))
	if end < 0 {
		return "", fmt.Errorf("%w: object %d unterminated", ErrMalformedOutput, n)
	}
	return strings.TrimSpace(string(rest[len(head):end])), nil
}

func submatchInt(re *regexp.Regexp, b []byte) (int, error) {
	m := re.FindSubmatch(b)
	if m == nil {
		return 0, fmt.Errorf("%w: %s not found", ErrMalformedOutput, re)
	}
	return strconv.Atoi(string(m[1]))
}

// pdfString encodes s as a literal string.
func pdfString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`, "\r", `\r`, "\n", `\n`)
	return "(" + r.Replace(s) + ")"
}
