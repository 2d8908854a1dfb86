package pwa

import (
	"fmt"
	"strconv"
	"strings"
)

// The JSGrid stores one record per task line. Day columns are keyed
// TPD_col{N}{suffix} with N = 0..6 (Monday..Sunday) and suffix "a" for
// Actual, "p" for Planned. Record keys are resolved through the cached
// assignment name property, the only label that survives grid refreshes.
const assignNameProp = "TS_LINE_CACHED_ASSIGN_NAME"

func fieldKey(day int, planned bool) string {
	suffix := "a"
	if planned {
		suffix = "p"
	}
	return fmt.Sprintf("TPD_col%d%s", day, suffix)
}

// jsStr renders a Go string as a JavaScript string literal.
func jsStr(s string) string { return strconv.Quote(s) }

// findControllerScript locates the page-global JSGrid controller variable.
const findControllerScript = `() => {
	for (let key in window) {
		if (key.includes('JSGridController')) return key;
	}
	return null;
}`

// taskRowsScript enumerates every task record with its cached assignment
// name and the localized Actual/Planned values for all seven day columns.
// Records without an assignment name are summary/total lines and skipped.
func taskRowsScript(ctrl string) string {
	return fmt.Sprintf(`() => {
	let grid = window[%s]._jsGridControl;
	let count = grid.GetViewRecordCount();
	let result = [];
	for (let i = 0; i < count; i++) {
		let key = grid.GetRecordKeyByViewIndex(i);
		let rec = grid.GetRecord(key);
		if (!rec) continue;
		let name = '';
		let assignProp = rec.properties ? rec.properties[%s] : null;
		if (assignProp) {
			for (let k in assignProp) {
				if (typeof assignProp[k] === 'string') { name = assignProp[k]; break; }
			}
		}
		if (!name) continue;
		let actual = [];
		let planned = [];
		for (let c = 0; c < 7; c++) {
			try { actual.push(rec.GetLocalizedValue('TPD_col' + c + 'a') || ''); }
			catch (e) { actual.push(''); }
			try { planned.push(rec.GetLocalizedValue('TPD_col' + c + 'p') || ''); }
			catch (e) { planned.push(''); }
		}
		result.push({ key: key, name: name, actual: actual, planned: planned });
	}
	return result;
}`, jsStr(ctrl), jsStr(assignNameProp))
}

// updateCellsScript batches validated property updates through the grid's
// change-tracking pipeline and flags the pending write on the controller.
func updateCellsScript(ctrl string, updates []CellUpdate) string {
	parts := make([]string, len(updates))
	for i, u := range updates {
		parts[i] = fmt.Sprintf("SP.JsGrid.CreateValidatedPropertyUpdate(%s, %s, %d, %s)",
			jsStr(u.RecordKey), jsStr(fieldKey(u.Day, u.Planned)),
			int64(u.Value), jsStr(u.Value.Localized()))
	}
	return fmt.Sprintf(`() => {
	let ctrl = window[%s];
	let grid = ctrl._jsGridControl;
	let updates = [
		%s
	];
	let changeKey = grid.UpdateProperties(updates, null, null);
	if (changeKey) {
		ctrl.notifyWritePending(changeKey);
	}
	grid.RefreshAllRows();
}`, jsStr(ctrl), strings.Join(parts, ",\n\t\t"))
}

// isDirtyScript asks the controller whether unsaved changes are pending.
func isDirtyScript(ctrl string) string {
	return fmt.Sprintf(`() => window[%s].IsDirty()`, jsStr(ctrl))
}

// summaryRowsScript collects the cell texts of every table row on the
// summary page that has at least three cells; the period rows are among
// them and the Go side picks them out by parsing date ranges.
const summaryRowsScript = `() => {
	let rows = document.querySelectorAll('table tr');
	let result = [];
	for (let row of rows) {
		let cells = row.querySelectorAll('td');
		if (cells.length < 3) continue;
		let texts = [];
		let max = Math.min(cells.length, 6);
		for (let j = 0; j < max; j++) texts.push(cells[j].innerText.trim());
		result.push(texts);
	}
	return result;
}`

// clickRowLinkScript clicks the first link of the idx-th data row (same
// filtering as summaryRowsScript) and returns the link text, either
// "Click to Create" or "My Timesheet".
func clickRowLinkScript(idx int) string {
	return fmt.Sprintf(`() => {
	let rows = document.querySelectorAll('table tr');
	let idx = 0;
	for (let row of rows) {
		let cells = row.querySelectorAll('td');
		if (cells.length < 3) continue;
		if (idx === %d) {
			let link = row.querySelector('a');
			if (!link) return null;
			let text = link.innerText.trim();
			link.click();
			return text;
		}
		idx++;
	}
	return null;
}`, idx)
}

// selectRowScript clicks a non-link cell of the idx-th data row so the
// ribbon enables its contextual buttons; clicking a link cell would
// navigate instead of select.
func selectRowScript(idx int) string {
	return fmt.Sprintf(`() => {
	let rows = document.querySelectorAll('table tr');
	let idx = 0;
	for (let row of rows) {
		let cells = row.querySelectorAll('td');
		if (cells.length < 3) continue;
		if (idx === %d) {
			for (let cell of cells) {
				if (!cell.querySelector('a')) { cell.click(); return true; }
			}
			row.click();
			return true;
		}
		idx++;
	}
	return false;
}`, idx)
}

// clickDialogOKScript presses the OK button inside any same-origin dialog
// iframe. SharePoint renders the submit confirmation in a modal iframe
// whose name varies by tenant, so every frame is tried.
const clickDialogOKScript = `() => {
	let iframes = document.querySelectorAll('iframe');
	for (let iframe of iframes) {
		try {
			let doc = iframe.contentDocument || iframe.contentWindow.document;
			let btn = doc.querySelector("input[value='OK']");
			if (btn) { btn.click(); return true; }
		} catch (e) {}
	}
	return false;
}`

// expandAssignmentTreeScript clicks every collapsed tree node in the "add
// from existing assignments" dialog (main document and iframes) so the
// task list becomes visible. Returns how many nodes were expanded.
const expandAssignmentTreeScript = `() => {
	let expanded = 0;
	let docs = [document];
	for (let iframe of document.querySelectorAll('iframe')) {
		try { docs.push(iframe.contentDocument || iframe.contentWindow.document); } catch (e) {}
	}
	for (let doc of docs) {
		let nodes = doc.querySelectorAll("[aria-expanded='false'], img[alt*='expand' i], a[title*='expand' i]");
		for (let node of nodes) {
			try { node.click(); expanded++; } catch (e) {}
		}
	}
	return expanded;
}`

// pickAssignmentScript selects the task matching name inside the dialog
// (checkbox next to it if present, else a direct click) and presses
// OK/Add. Returns true when both steps landed.
func pickAssignmentScript(name string) string {
	return fmt.Sprintf(`() => {
	let target = %s.toLowerCase();
	let docs = [document];
	for (let iframe of document.querySelectorAll('iframe')) {
		try { docs.push(iframe.contentDocument || iframe.contentWindow.document); } catch (e) {}
	}
	for (let doc of docs) {
		let el = null;
		for (let tag of ['label', 'span', 'td', 'a', 'div']) {
			for (let cand of doc.querySelectorAll(tag)) {
				let txt = (cand.innerText || '').trim().toLowerCase();
				if (txt && txt.includes(target)) { el = cand; break; }
			}
			if (el) break;
		}
		if (!el) continue;
		let cb = el.parentElement ? el.parentElement.querySelector("input[type='checkbox']") : null;
		if (cb) {
			if (!cb.checked) cb.click();
		} else {
			el.click();
		}
		let ok = doc.querySelector("input[value='OK'], input[value='Add']");
		if (ok) { ok.click(); return true; }
	}
	return false;
}`, jsStr(name))
}
