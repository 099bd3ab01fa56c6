package bookcapture

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// viewerHelpers is evaluated as an object literal; [Session.Call] invokes
// one of its methods by name. Every method returns a JSON-serialisable
// value (never undefined) so results decode without special cases.
const viewerHelpers = `({
	imagesReady(imgSel) {
		const imgs = document.querySelectorAll(imgSel);
		if (imgs.length === 0) return false;
		for (const img of imgs) {
			if (!img.complete || img.naturalHeight === 0) return false;
		}
		return true;
	},

	lastImageReady(imgSel) {
		const imgs = document.querySelectorAll(imgSel);
		if (imgs.length === 0) return false;
		const img = imgs[imgs.length - 1];
		return img.complete && img.naturalHeight > 0;
	},

	imageVisible(imgSel) {
		for (const img of document.querySelectorAll(imgSel)) {
			const style = window.getComputedStyle(img);
			if (style.display === 'none' || style.visibility === 'hidden') continue;
			const rect = img.getBoundingClientRect();
			if (rect.width > 0 && rect.height > 0) return true;
		}
		return false;
	},

	locateByAttribute(wrapperSel, attr, imgSel, pageNum) {
		const wrappers = document.querySelectorAll(wrapperSel);
		for (const w of wrappers) {
			const v = w.getAttribute(attr);
			if (v && parseInt(v, 10) === pageNum) {
				const el = this._describe(w, attr, imgSel, wrappers.length);
				el.matched = true;
				return el;
			}
		}
		return { found: false, matched: false, src: '', page: 0, wrappers: wrappers.length };
	},

	locateVisible(wrapperSel, attr, imgSel) {
		const wrappers = document.querySelectorAll(wrapperSel);
		for (const w of wrappers) {
			const style = window.getComputedStyle(w);
			if (style.display !== 'none' && style.zIndex !== '0') {
				return this._describe(w, attr, imgSel, wrappers.length);
			}
		}
		return { found: false, matched: false, src: '', page: 0, wrappers: wrappers.length };
	},

	_describe(w, attr, imgSel, total) {
		const img = w.querySelector(imgSel);
		const page = parseInt(w.getAttribute(attr) || '0', 10) || 0;
		if (img && img.complete && img.naturalHeight !== 0) {
			return { found: true, matched: false, src: img.src || '', page: page, wrappers: total };
		}
		return { found: false, matched: false, src: '', page: page, wrappers: total };
	},

	firstPresent(selectors) {
		for (const s of selectors) {
			try {
				if (document.querySelector(s)) return s;
			} catch (e) {}
		}
		return '';
	},

	clearInput(sel) {
		const el = document.querySelector(sel);
		if (!el) return false;
		el.focus();
		if (typeof el.select === 'function') el.select();
		el.value = '';
		el.dispatchEvent(new Event('input', { bubbles: true }));
		return true;
	},

	pageCountText(totalSel, infoSel) {
		const res = { primaryFound: false, primary: '', secondaryFound: false, secondary: '' };
		const total = document.querySelector(totalSel);
		if (total) {
			res.primaryFound = true;
			res.primary = (total.textContent || '').trim();
		}
		const info = document.querySelector(infoSel);
		if (info) {
			res.secondaryFound = true;
			res.secondary = info.textContent || '';
		}
		return res;
	},

	async readBlob(url) {
		try {
			const response = await fetch(url);
			const blob = await response.blob();
			const dataURL = await new Promise((resolve, reject) => {
				const reader = new FileReader();
				reader.onloadend = () => resolve(reader.result);
				reader.onerror = () => reject(reader.error);
				reader.readAsDataURL(blob);
			});
			return { ok: true, dataURL: String(dataURL), error: '' };
		} catch (e) {
			return { ok: false, dataURL: '', error: String(e) };
		}
	},
})`

// callExpression builds the expression that invokes helper fn with args.
func callExpression(fn string, args ...any) (string, error) {
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("bookcapture: encoding %s arguments: %w", fn, err)
	}
	return fmt.Sprintf("%s[%s](...%s)", viewerHelpers, strconv.Quote(fn), encoded), nil
}

// Helper names understood by [Page.Call].
const (
	fnImagesReady       = "imagesReady"
	fnLastImageReady    = "lastImageReady"
	fnImageVisible      = "imageVisible"
	fnLocateByAttribute = "locateByAttribute"
	fnLocateVisible     = "locateVisible"
	fnFirstPresent      = "firstPresent"
	fnClearInput        = "clearInput"
	fnPageCountText     = "pageCountText"
	fnReadBlob          = "readBlob"
)
