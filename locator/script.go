package locator

// ResolveScript is a JS function expression resolving a locator path to
// an element. Embedded into transformation scripts so resolution runs
// inside the page, against the live tree, in the same script turn as
// the mutation it guards.
//
// Mirror of Resolve: missing index means 1, tag match is
// case-insensitive, element children only.
const ResolveScript = `(path) => {
	let node = document;
	for (const part of path.split('/').filter(Boolean)) {
		const m = part.match(/^([a-z][a-z0-9-]*)(?:\[([0-9]+)\])?$/);
		if (!m) return null;
		const tag = m[1].toUpperCase();
		const want = m[2] ? parseInt(m[2], 10) : 1;
		let seen = 0, next = null;
		for (const child of node.children || []) {
			if (child.tagName !== tag) continue;
			seen++;
			if (seen === want) { next = child; break; }
		}
		if (!next) return null;
		node = next;
	}
	return node === document ? null : node;
}`

// ComputeScript is a JS function expression building the locator path
// for an element. Mirror of Compute: the [n] index is emitted only when
// the element has same-tag siblings.
const ComputeScript = `(el) => {
	const parts = [];
	let node = el;
	while (node && node.nodeType === 1) {
		const tag = node.tagName.toLowerCase();
		let idx = 0, total = 0;
		const parent = node.parentNode;
		if (parent) {
			for (const sib of parent.children || []) {
				if (sib.tagName !== node.tagName) continue;
				total++;
				if (sib === node) idx = total;
			}
		}
		parts.unshift(total > 1 ? tag + '[' + idx + ']' : tag);
		node = node.parentElement;
	}
	return parts.length ? '/' + parts.join('/') : '';
}`
