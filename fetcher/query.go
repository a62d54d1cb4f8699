package fetcher

// Query is the request half of an in-page extraction. It is serialized into
// the document context, where queryScript evaluates it against the live DOM;
// only plain data crosses that boundary in either direction.
type Query struct {
	// Selector picks the elements to extract.
	Selector string
	// TextFrom is an optional child selector whose text replaces the
	// element's own text when present.
	TextFrom string
	// Attr is read as a DOM property first (so src/href come back absolute)
	// and falls back to the raw attribute.
	Attr string
	// GroupBy names an ancestor selector; GroupAttr on that ancestor
	// becomes the item's Group.
	GroupBy   string
	GroupAttr string
	// ExcludeGroups drops elements whose Group is listed.
	ExcludeGroups []string
	// Limit caps the number of returned items; zero means no cap.
	Limit int
}

// QueryItem is one extracted element.
type QueryItem struct {
	Text  string `json:"text"`
	Href  string `json:"href"`
	Attr  string `json:"attr"`
	Group string `json:"group"`
}

func (q Query) arg() map[string]interface{} {
	exclude := make([]interface{}, 0, len(q.ExcludeGroups))
	for _, g := range q.ExcludeGroups {
		exclude = append(exclude, g)
	}
	return map[string]interface{}{
		"selector":  q.Selector,
		"textFrom":  q.TextFrom,
		"attr":      q.Attr,
		"groupBy":   q.GroupBy,
		"groupAttr": q.GroupAttr,
		"exclude":   exclude,
		"limit":     q.Limit,
	}
}

const queryScript = `(q) => {
	const excluded = new Set(q.exclude || []);
	const out = [];
	for (const el of document.querySelectorAll(q.selector)) {
		let group = '';
		if (q.groupBy) {
			const anc = el.closest(q.groupBy);
			group = (anc && anc.getAttribute(q.groupAttr)) || '';
		}
		if (group && excluded.has(group)) continue;

		let textEl = el;
		if (q.textFrom) {
			textEl = el.querySelector(q.textFrom) || el;
		}
		const text = ((textEl.innerText !== undefined ? textEl.innerText : textEl.textContent) || '').trim();

		let attr = '';
		if (q.attr) {
			const prop = el[q.attr];
			attr = (typeof prop === 'string' && prop) || el.getAttribute(q.attr) || '';
		}

		out.push({ text, href: typeof el.href === 'string' ? el.href : '', attr, group });
		if (q.limit > 0 && out.length >= q.limit) break;
	}
	return out;
}`
