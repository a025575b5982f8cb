package browser

import (
	"strings"
	"time"

	"github.com/go-rod/rod"
)

// acceptPhrase is a consent button caption with its match mode. Exact
// phrases match on word boundaries; the rest match as substrings.
type acceptPhrase struct {
	Text  string `json:"text"`
	Exact bool   `json:"exact"`
}

// acceptPhrases is ordered most specific first so "accept all cookies"
// wins over a bare "accept". Short ambiguous words are exact to avoid
// hits inside words like "disagree". Covers en, de, fr, es, it.
var acceptPhrases = []acceptPhrase{
	{Text: "accept all cookies"},
	{Text: "allow all cookies"},
	{Text: "alle cookies akzeptieren"},
	{Text: "accepter tous les cookies"},
	{Text: "aceptar todas las cookies"},
	{Text: "accetta tutti i cookie"},
	{Text: "accept all"},
	{Text: "allow all"},
	{Text: "alle akzeptieren"},
	{Text: "allen zustimmen"},
	{Text: "tout accepter"},
	{Text: "aceptar todas"},
	{Text: "aceptar todo"},
	{Text: "accetta tutti"},
	{Text: "accetta tutto"},
	{Text: "accept cookies"},
	{Text: "cookies akzeptieren"},
	{Text: "accepter les cookies"},
	{Text: "aceptar cookies"},
	{Text: "accetta i cookie"},
	{Text: "i accept"},
	{Text: "j'accepte"},
	{Text: "estoy de acuerdo"},
	{Text: "sono d'accordo"},
	{Text: "agree and close"},
	{Text: "einverstanden"},
	{Text: "zustimmen"},
	{Text: "verstanden"},
	{Text: "de acuerdo"},
	{Text: "got it"},
	{Text: "akzeptieren", Exact: true},
	{Text: "accepter", Exact: true},
	{Text: "aceptar", Exact: true},
	{Text: "accetta", Exact: true},
	{Text: "accept", Exact: true},
	{Text: "agree", Exact: true},
	{Text: "allow", Exact: true},
	{Text: "okay", Exact: true},
	{Text: "ok", Exact: true},
}

// consentFrameHints mark iframe URLs that belong to consent platforms.
var consentFrameHints = []string{
	"cmp.",
	"consent",
	"sourcepoint",
	"privacy",
	"gdpr",
	"cookie",
}

// consentPlatformSelectors are accept buttons of the common consent
// managers, tried in order; the first visible match is clicked.
var consentPlatformSelectors = []string{
	"#onetrust-accept-btn-handler",
	"#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll",
	"#CybotCookiebotDialogBodyButtonAccept",
	".osano-cm-accept-all",
	".osano-cm-accept",
	".cky-btn-accept",
	".cmplz-accept",
	"a[data-cookie-accept-all]",
	".brlbs-btn-accept-all",
	"#qc-cmp2-ui button[mode=primary]",
	"#didomi-notice-agree-button",
	"#truste-consent-button",
	".sp_choice_type_11",
	"[data-testid=uc-accept-all-button]",
	".cc-allow",
	".cc-accept-all",
	"#accept-cookies",
	"#acceptCookies",
	".accept-cookies",
	".cookie-accept",
	".js-accept-cookies",
	"button[aria-label='Accept cookies']",
	".cookie-consent-accept",
}

// consentOverlaySelectors are banner containers hidden as a last resort
// when no button could be clicked.
var consentOverlaySelectors = []string{
	"#onetrust-consent-sdk",
	"#CybotCookiebotDialog",
	"#CybotCookiebotDialogBodyUnderlay",
	".osano-cm-window",
	".cky-consent-container",
	"#cmplz-cookiebanner-container",
	"#BorlabsCookieBox",
	"#qc-cmp2-container",
	"#didomi-host",
	".truste_box_overlay",
	".truste_overlay",
	"[id^='sp_message_container']",
	"#usercentrics-root",
	".cc-window",
	".cookie-banner",
	"#cookie-banner",
	".cookie-notice",
	"#cookie-notice",
	".cookie-consent",
	"#cookieConsent",
	".gdpr-banner",
	".consent-banner",
	"[class*='cookie-overlay']",
	"[class*='cookie-wall']",
}

const isVisibleJS = `
	const isVisible = (el) => {
		const rect = el.getBoundingClientRect();
		if (rect.width === 0 || rect.height === 0) return false;
		const style = window.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0';
	};`

// clickByPhraseJS walks clickable elements and clicks the first visible
// one whose text, value or aria-label matches a phrase. Phrase priority
// beats document order.
const clickByPhraseJS = `(phrases) => {` + isVisibleJS + `
	const escape = (s) => s.replace(/[.*+?^$()|[\]{}\\]/g, '\\$&');
	const candidates = document.querySelectorAll(
		'button, a, [role=button], input[type=button], input[type=submit], .btn, [class*=button]');
	for (const phrase of phrases) {
		const re = phrase.exact ? new RegExp('\\b' + escape(phrase.text) + '\\b', 'i') : null;
		for (const el of candidates) {
			const text = ((el.innerText || el.value || '') + ' ' + (el.getAttribute('aria-label') || ''))
				.trim().toLowerCase();
			if (!text) continue;
			const hit = phrase.exact ? re.test(text) : text.includes(phrase.text);
			if (hit && isVisible(el)) {
				el.click();
				return true;
			}
		}
	}
	return false;
}`

// clickBySelectorJS clicks the first visible element of a selector list.
const clickBySelectorJS = `(selectors) => {` + isVisibleJS + `
	for (const sel of selectors) {
		let els;
		try { els = document.querySelectorAll(sel); } catch (e) { continue; }
		for (const el of els) {
			if (isVisible(el)) {
				el.click();
				return true;
			}
		}
	}
	return false;
}`

// hideOverlaysJS removes leftover banners from view and restores body
// scrolling when a banner locked it.
const hideOverlaysJS = `(selectors) => {
	let hidden = 0;
	for (const sel of selectors) {
		let els;
		try { els = document.querySelectorAll(sel); } catch (e) { continue; }
		for (const el of els) {
			el.style.setProperty('display', 'none', 'important');
			hidden++;
		}
	}
	if (window.getComputedStyle(document.body).overflow === 'hidden') {
		document.body.style.setProperty('overflow', 'auto', 'important');
	}
	return hidden > 0;
}`

// dismissConsent runs the composite best-effort consent sweep: consent
// iframes, then main-document phrase match, then platform selectors,
// then hiding leftover overlays. Each sub-step is isolated; a failure
// in one never stops the next. Reports whether anything was clicked.
func dismissConsent(page *rod.Page) bool {
	clicked := dismissConsentFrames(page)

	if clickConsentByPhrase(page) {
		clicked = true
	}
	if clickConsentBySelector(page) {
		clicked = true
	}

	hideConsentOverlays(page)
	return clicked
}

// dismissConsentFrames walks iframes whose URL looks like a consent
// platform and tries selectors then phrases inside each, bounded to 3
// seconds per frame.
func dismissConsentFrames(page *rod.Page) bool {
	iframes, err := page.Timeout(3 * time.Second).Elements("iframe")
	if err != nil {
		return false
	}

	clicked := false
	for _, iframe := range iframes {
		src, err := iframe.Attribute("src")
		if err != nil || src == nil || !isConsentFrameURL(*src) {
			continue
		}

		frame, err := iframe.Frame()
		if err != nil {
			continue
		}
		frame = frame.Timeout(3 * time.Second)

		if res, err := frame.Eval(clickBySelectorJS, consentPlatformSelectors); err == nil && res.Value.Bool() {
			clicked = true
			continue
		}
		if res, err := frame.Eval(clickByPhraseJS, acceptPhrases); err == nil && res.Value.Bool() {
			clicked = true
		}
	}
	return clicked
}

func isConsentFrameURL(url string) bool {
	lowered := strings.ToLower(url)
	for _, hint := range consentFrameHints {
		if strings.Contains(lowered, hint) {
			return true
		}
	}
	return false
}

func clickConsentByPhrase(page *rod.Page) bool {
	res, err := page.Timeout(5*time.Second).Eval(clickByPhraseJS, acceptPhrases)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

func clickConsentBySelector(page *rod.Page) bool {
	res, err := page.Timeout(5*time.Second).Eval(clickBySelectorJS, consentPlatformSelectors)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

func hideConsentOverlays(page *rod.Page) {
	_, _ = page.Timeout(5*time.Second).Eval(hideOverlaysJS, consentOverlaySelectors)
}
