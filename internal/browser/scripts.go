package browser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// call renders an invocation of a page-side function with JSON arguments.
func call(fn string, args ...any) string {
	encoded := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			b = []byte("null")
		}
		encoded[i] = string(b)
	}
	return fmt.Sprintf("(%s)(%s)", fn, strings.Join(encoded, ","))
}

// state keeps the node table and the frame stack on the top window. It is
// reset by every navigation.
const state = `(window.__ss = window.__ss || {nodes: [], frames: []})`

const rootScript = `function() {
	const ss = ` + state + `;
	let root = document;
	for (const f of ss.frames) {
		if (!f.isConnected || !f.contentDocument) { ss.frames = []; return document; }
		root = f.contentDocument;
	}
	return root;
}`

const queryScript = `function(selector) {
	const ss = ` + state + `;
	const root = (` + rootScript + `)();
	const ser = (n) => {
		if (n.nodeType === 3) return {t: n.nodeValue};
		if (n.nodeType !== 1) return null;
		const a = [];
		for (const at of n.attributes) a.push([at.name, at.value]);
		const c = [];
		const kids = n.tagName === "TEMPLATE" ? n.content.childNodes : n.childNodes;
		for (const k of kids) { const s = ser(k); if (s) c.push(s); }
		return {n: n.tagName.toLowerCase(), a: a, c: c};
	};
	return Array.from(root.querySelectorAll(selector)).map((el) => {
		ss.nodes.push(el);
		return {id: ss.nodes.length - 1, tree: ser(el)};
	});
}`

const clickScript = `function(id, path) {
	const ss = window.__ss;
	if (!ss || !ss.nodes[id] || !ss.nodes[id].isConnected) return "stale";
	let el = ss.nodes[id];
	for (const [selector, i] of path) {
		const found = el.querySelectorAll(selector);
		if (i >= found.length) return "missing";
		el = found[i];
	}
	el.scrollIntoView({block: "center"});
	el.click();
	return "ok";
}`

const enterFrameScript = `function(selector) {
	const ss = ` + state + `;
	const root = (` + rootScript + `)();
	const frame = root.querySelector(selector);
	if (!frame) return "missing";
	let doc = null;
	try { doc = frame.contentDocument; } catch (e) { doc = null; }
	if (!doc) return "cross-origin";
	ss.frames.push(frame);
	return "ok";
}`

const exitFrameScript = `(function() {
	const ss = ` + state + `;
	return ss.frames.pop() !== undefined;
})()`
