package parsers

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/sertantai/lrt-engine/internal/citation"
	"github.com/sertantai/lrt-engine/internal/errs"
	"github.com/sertantai/lrt-engine/internal/models"
)

// node is a generic XML element: name, attributes, the element's own
// text content (not its descendants'), and children in document order.
// The LAT walk needs arbitrary nesting and mixed element vocabularies
// (Pblock/P1/P2/P3/Schedule/Tabular/Signed/BlockAmendment/Versions/
// CommentaryRef), which a fixed struct per element type cannot express;
// a generic tree decoded once lets the walk dispatch on Name.
type node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*node
}

// UnmarshalXML implements a recursive generic-tree decode so LatParser
// can depth-first walk body XML of unknown/heterogeneous shape.
func (n *node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	n.Name = start.Name.Local
	n.Attrs = map[string]string{}
	for _, attr := range start.Attr {
		n.Attrs[attr.Name.Local] = attr.Value
	}

	var textParts []string
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child := &node{}
			if err := child.UnmarshalXML(d, t); err != nil {
				return err
			}
			n.Children = append(n.Children, child)
		case xml.CharData:
			textParts = append(textParts, string(t))
		case xml.EndElement:
			n.Text = strings.Join(textParts, "")
			return nil
		}
	}
}

func (n *node) attr(name string) string { return n.Attrs[name] }

// ownText concatenates the text content of n's own textual descendants,
// stopping at child elements that are themselves rows (so a row's text
// never swallows a nested provision's text). For leaf-ish rows this is
// simply n.Text plus the text of non-row children (e.g. <Text>, <Para>).
func ownText(n *node) string {
	var b strings.Builder
	b.WriteString(n.Text)
	for _, child := range n.Children {
		if isRowElement(child.Name) {
			continue
		}
		b.WriteString(" ")
		b.WriteString(ownText(child))
	}
	return strings.TrimSpace(b.String())
}

var rowElements = map[string]bool{
	"Pblock": true, "P1": true, "P2": true, "P3": true, "P4": true, "P5": true,
	"Schedule": true, "Tabular": true, "Signed": true,
}

func isRowElement(name string) bool { return rowElements[name] }

// walkState is the context carried down the recursion.
type walkState struct {
	part, chapter, headingGroup string
	provision, sub, paragraph, subParagraph string
	schedule                                string
	scheduleN                               int
	extentCode                              string
	depth                                   int
}

// walkAccumulator is the context accumulated up the recursion.
type walkAccumulator struct {
	lawName  string
	position int
	rows     []models.LATRow
}

// ParseLAT performs the depth-first hierarchical walk of body XML,
// producing the law's LAT row set.
func ParseLAT(xmlBody []byte, lawName string) ([]models.LATRow, error) {
	var root node
	decoder := xml.NewDecoder(newTrimReader(xmlBody))
	tok, err := decoder.Token()
	for {
		if err != nil {
			return nil, errs.Newf(errs.KindParseError, "decode body XML: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			if err := root.UnmarshalXML(decoder, start); err != nil {
				return nil, errs.Newf(errs.KindParseError, "decode body XML: %w", err)
			}
			break
		}
		tok, err = decoder.Token()
	}

	acc := &walkAccumulator{lawName: lawName}
	walkNode(&root, walkState{}, acc)
	resolveParallelExtents(acc.rows)
	return acc.rows, nil
}

func newTrimReader(b []byte) *strings.Reader {
	return strings.NewReader(string(b))
}

func walkNode(n *node, state walkState, acc *walkAccumulator) {
	if n.Name == "BlockAmendment" || n.Name == "Versions" {
		return
	}

	childState := state
	childState.depth = state.depth + 1

	switch n.Name {
	case "Part":
		childState.part = firstNonEmpty(n.attr("Number"), n.attr("id"))
	case "Chapter":
		childState.chapter = firstNonEmpty(n.attr("Number"), n.attr("id"))
	case "Heading":
		childState.headingGroup = firstNonEmpty(n.attr("Number"), n.attr("id"))
	case "Schedule":
		childState.scheduleN = state.scheduleN + 1
		childState.schedule = firstNonEmpty(n.attr("Number"), strconv.Itoa(childState.scheduleN))
	}

	if ext := normalizeExtentCode(n.attr("RestrictExtent")); ext != "" {
		childState.extentCode = ext
	}

	switch n.Name {
	case "Pblock":
		emitPblockRow(n, childState, acc)
	case "P1":
		childState.provision = n.attr("id")
		emitProvisionRow(n, childState, acc, provisionP1)
	case "P2":
		childState.sub = n.attr("id")
		emitProvisionRow(n, childState, acc, provisionP2)
	case "P3":
		childState.paragraph = n.attr("id")
		emitProvisionRow(n, childState, acc, provisionP3Plus)
	case "P4", "P5":
		childState.subParagraph = n.attr("id")
		emitProvisionRow(n, childState, acc, provisionP3Plus)
	case "Schedule":
		emitScheduleRow(n, childState, acc)
	case "Tabular":
		emitSimpleRow(n, childState, acc, models.SectionTable)
	case "Signed":
		emitSimpleRow(n, childState, acc, models.SectionSigned)
	}

	for _, child := range n.Children {
		walkNode(child, childState, acc)
	}
}

type provisionLevel int

const (
	provisionP1 provisionLevel = iota
	provisionP2
	provisionP3Plus
)

func emitPblockRow(n *node, state walkState, acc *walkAccumulator) {
	number := n.attr("Number")
	if number == "" {
		row := baseRow(state, acc, models.SectionHeading)
		row.Text = ownText(n)
		appendRow(acc, row, state, n)
		return
	}
	emitProvisionRow(n, state, acc, provisionP1)
}

// emitProvisionRow emits a section/article (P1), sub_section/sub_article
// (P2), or paragraph/sub_paragraph (P3+) row, selecting Act vs SI naming
// by whether the law name's type code is primary legislation.
func emitProvisionRow(n *node, state walkState, acc *walkAccumulator, level provisionLevel) {
	var sectionType models.SectionType
	isAct := actTypeFromLawName(acc.lawName)
	switch level {
	case provisionP1:
		if isAct {
			sectionType = models.SectionSection
		} else {
			sectionType = models.SectionArticle
		}
	case provisionP2:
		if isAct {
			sectionType = models.SectionSubSection
		} else {
			sectionType = models.SectionSubArticle
		}
	default:
		if state.subParagraph != "" {
			sectionType = models.SectionSubParagraph
		} else {
			sectionType = models.SectionParagraph
		}
	}

	row := baseRow(state, acc, sectionType)
	row.Text = ownText(n)
	appendRow(acc, row, state, n)
}

func emitScheduleRow(n *node, state walkState, acc *walkAccumulator) {
	row := baseRow(state, acc, models.SectionSchedule)
	row.Text = ownText(n)
	appendRow(acc, row, state, n)
}

func emitSimpleRow(n *node, state walkState, acc *walkAccumulator, sectionType models.SectionType) {
	row := baseRow(state, acc, sectionType)
	row.Text = ownText(n)
	appendRow(acc, row, state, n)
}

func baseRow(state walkState, acc *walkAccumulator, sectionType models.SectionType) models.LATRow {
	return models.LATRow{
		LawName:     acc.lawName,
		SectionType: sectionType,
		Depth:       state.depth,
		Part:        state.part,
		Chapter:     state.chapter,
		HeadingGroup: state.headingGroup,
		Provision:   state.provision,
		Paragraph:   state.paragraph,
		SubParagraph: state.subParagraph,
		Schedule:    state.schedule,
		ExtentCode:  state.extentCode,
	}
}

// appendRow computes a row's provisional (pre-parallel-extent-suffix)
// section_id/sort_key, commentary counts, and hierarchy_path, and
// appends it with a dense position. The parallel-extent suffix itself is
// applied in a second pass by resolveParallelExtents once every row's
// provisional citation is known.
func appendRow(acc *walkAccumulator, row models.LATRow, state walkState, n *node) {
	isAct := actTypeFromLawName(acc.lawName)

	var baseID, sortKey string
	switch {
	case row.SectionType == models.SectionSchedule:
		baseID = fmt.Sprintf("%s:sch.%s", row.LawName, state.schedule)
		sortKey = "sch." + zeroPadSortKey(state.schedule)
	case state.schedule != "":
		suffix := citationSuffix(state, row.SectionType, isAct)
		baseID = fmt.Sprintf("%s:sch.%s.%s", row.LawName, state.schedule, suffix)
		sortKey = "sch." + zeroPadSortKey(state.schedule) + "." + zeroPadSortKey(suffix)
	default:
		suffix := citationSuffix(state, row.SectionType, isAct)
		baseID = row.LawName + ":" + suffix
		sortKey = zeroPadSortKey(suffix)
	}

	row.SectionID = baseID
	row.SortKey = sortKey
	row.HierarchyPath = buildHierarchyPath(state)

	commentary, refIDs := scanCommentaryRefs(n)
	row.Commentary = commentary
	row.CommentaryRefIDs = refIDs

	acc.position++
	row.Position = acc.position
	acc.rows = append(acc.rows, row)
}

// resolveParallelExtents applies the "[<extent>]" section_id suffix and
// "~<extent>" sort_key suffix to every row that shares its provisional
// citation with a sibling that differs only by extent. A
// citation occurring once is left unsuffixed.
func resolveParallelExtents(rows []models.LATRow) {
	counts := map[string]int{}
	for _, row := range rows {
		counts[row.SectionID]++
	}
	for i := range rows {
		if counts[rows[i].SectionID] <= 1 || rows[i].ExtentCode == "" {
			continue
		}
		rows[i].SectionID = rows[i].SectionID + "[" + rows[i].ExtentCode + "]"
		rows[i].SortKey = rows[i].SortKey + "~" + rows[i].ExtentCode
	}
}

// provisionPrefix returns the citation prefix for a law's top-level
// provisions: "s" for Act sections, "reg" for SI regulations.
func provisionPrefix(isAct bool) string {
	if isAct {
		return "s"
	}
	return "reg"
}

// citationSuffix builds the "<prefix>.<number>[(<sub>)[(<para>)[(<subpara>)]]]"
// portion of a provision row's section_id, accumulating each nesting
// level onto the parent provision's citation rather than starting fresh
// at the leaf — a bare paragraph id is not unique across sections, only
// the full nested citation is.
func citationSuffix(state walkState, sectionType models.SectionType, isAct bool) string {
	prefix := provisionPrefix(isAct)
	switch sectionType {
	case models.SectionSection, models.SectionArticle:
		return prefix + "." + state.provision
	case models.SectionSubSection, models.SectionSubArticle:
		return prefix + "." + state.provision + "(" + state.sub + ")"
	case models.SectionParagraph, models.SectionSubParagraph:
		suffix := prefix + "." + state.provision
		if state.sub != "" {
			suffix += "(" + state.sub + ")"
		}
		if state.paragraph != "" {
			suffix += "(" + state.paragraph + ")"
		}
		if sectionType == models.SectionSubParagraph && state.subParagraph != "" {
			suffix += "(" + state.subParagraph + ")"
		}
		return suffix
	}
	return ""
}

// zeroPadSortKey zero-pads numeric segments to a fixed width while
// preserving letter segments, so "10" sorts after "2" and "10A" after
// "10".
func zeroPadSortKey(segment string) string {
	var b strings.Builder
	var digits strings.Builder
	flush := func() {
		if digits.Len() == 0 {
			return
		}
		b.WriteString(fmt.Sprintf("%08s", digits.String()))
		digits.Reset()
	}
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		} else {
			flush()
			b.WriteRune(r)
		}
	}
	flush()
	return b.String()
}

func buildHierarchyPath(state walkState) string {
	var parts []string
	for _, p := range []string{state.part, state.chapter, state.headingGroup, state.schedule, state.provision, state.sub, state.paragraph, state.subParagraph} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}

// scanCommentaryRefs scans <CommentaryRef Ref> descendants of n's own
// textual content (not of child rows) and tallies them by type letter.
func scanCommentaryRefs(n *node) (models.CommentaryCounts, []string) {
	var counts models.CommentaryCounts
	var refIDs []string

	var scan func(*node)
	scan = func(cur *node) {
		if cur != n && isRowElement(cur.Name) {
			return
		}
		if cur.Name == "CommentaryRef" {
			ref := cur.attr("Ref")
			refIDs = append(refIDs, ref)
			switch commentaryLetterOf(ref) {
			case 'F':
				counts.Amendment++
			case 'C', 'M':
				counts.Modification++
			case 'I':
				counts.Commencement++
			case 'E', 'X':
				counts.Extent++
			}
		}
		for _, child := range cur.Children {
			scan(child)
		}
	}
	scan(n)
	return counts, refIDs
}

func commentaryLetterOf(ref string) byte {
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		if c >= 'A' && c <= 'Z' {
			return c
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// actTypeFromLawName reports whether name's type code denotes primary
// legislation (Act numbering: section/sub_section) vs SI numbering
// (article/sub_article).
func actTypeFromLawName(name string) bool {
	id, ok := citation.ParseIdentity(name)
	if !ok {
		return false
	}
	return citation.IsPrimaryLegislation(id.TypeCode)
}
