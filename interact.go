package cotacao

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// Locator is one way of finding a control. The target page's markup is not
// contractually stable, so every primitive carries an ordered list of
// locators and accepts the first visible match.
type Locator struct {
	Query string
	XPath bool
}

func (l Locator) opt() chromedp.QueryOption {
	if l.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// probeTimeout bounds the wait on a single locator attempt. Locators that
// will never match must fail fast so the next one gets its turn.
const probeTimeout = 1500 * time.Millisecond

// clickFirstVisible walks the locator list and clicks the first visible
// match. The boolean reports whether any locator hit.
func (b *Browser) clickFirstVisible(ctx context.Context, locators []Locator) bool {
	for _, l := range locators {
		attempt, cancel := context.WithTimeout(ctx, probeTimeout)
		err := chromedp.Run(attempt,
			chromedp.WaitVisible(l.Query, l.opt()),
			chromedp.Click(l.Query, l.opt()),
		)
		cancel()
		if err == nil {
			b.log.Printf("clicked %#v", l.Query)
			return true
		}
	}
	return false
}

// waitReady blocks until the selector is visible, bounded by the
// element-wait timeout. Used to detect that the converter page loaded.
func (b *Browser) waitReady(ctx context.Context, selector string) error {
	wait, cancel := context.WithTimeout(ctx, b.opts.ElementWaitTimeout)
	defer cancel()
	return chromedp.Run(wait, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// overlayLocators are the consent-banner and modal-close rules observed on
// the target site, most specific first.
var overlayLocators = []Locator{
	{Query: `button.btn-primary.btn-accept`},
	{Query: `//button[contains(normalize-space(.), 'Prosseguir')]`, XPath: true},
	{Query: `//div[contains(@class, 'text-center')]/button[contains(@class, 'btn-accept')]`, XPath: true},
	{Query: `//button[contains(@class, 'btn-close')]`, XPath: true},
	{Query: `//button[contains(@class, 'close')]`, XPath: true},
	{Query: `//button[contains(normalize-space(.), 'Fechar')]`, XPath: true},
	{Query: `//div[contains(@class, 'modal-header')]//button`, XPath: true},
}

// DismissOverlays clicks every visible cookie-banner or modal control it
// can find. Best-effort housekeeping: it never fails and may be a no-op.
func (b *Browser) DismissOverlays(ctx context.Context) {
	// Banners render late; give them a moment to appear.
	_ = b.settle(ctx, 0)

	for _, l := range overlayLocators {
		var nodes []*cdp.Node
		attempt, cancel := context.WithTimeout(ctx, probeTimeout)
		err := chromedp.Run(attempt, chromedp.Nodes(l.Query, &nodes, l.opt(), chromedp.AtLeast(0)))
		cancel()
		if err != nil || len(nodes) == 0 {
			continue
		}
		for _, node := range nodes {
			attempt, cancel := context.WithTimeout(ctx, probeTimeout)
			if err := chromedp.Run(attempt, chromedp.MouseClickNode(node)); err == nil {
				b.log.Printf("dismissed overlay via %#v", l.Query)
			}
			cancel()
		}
	}
}

func optionLocators(controlID, label string) []Locator {
	menuID := controlID
	if len(menuID) > len("button-") && menuID[:len("button-")] == "button-" {
		menuID = menuID[len("button-"):]
	}
	return []Locator{
		{Query: fmt.Sprintf(`//ul[@id='%v']//a[contains(normalize-space(.), '%v')]`, menuID, label), XPath: true},
		{Query: fmt.Sprintf(`//div[contains(@class, 'dropdown-menu')]//a[contains(normalize-space(.), '%v')]`, label), XPath: true},
		{Query: fmt.Sprintf(`//a[contains(@class, 'dropdown-item')][contains(normalize-space(.), '%v')]`, label), XPath: true},
	}
}

// SelectDropdownOption opens the dropdown identified by controlID and picks
// the first visible option whose text contains label.
func (b *Browser) SelectDropdownOption(ctx context.Context, controlID, label string) error {
	opener := []Locator{
		{Query: "#" + controlID},
		{Query: fmt.Sprintf(`//button[@id='%v']`, controlID), XPath: true},
	}
	if !b.clickFirstVisible(ctx, opener) {
		return SelectionError{Control: controlID, Label: label}
	}
	if err := b.settle(ctx, 0); err != nil {
		return err
	}

	if b.clickFirstVisible(ctx, optionLocators(controlID, label)) {
		return nil
	}

	// The menu sometimes closes itself before the option click lands.
	// Reopen once and retry the same locator list.
	if b.clickFirstVisible(ctx, opener) {
		_ = b.settle(ctx, 0)
		if b.clickFirstVisible(ctx, optionLocators(controlID, label)) {
			return nil
		}
	}
	return SelectionError{Control: controlID, Label: label}
}

var dateInputLocators = []Locator{
	{Query: `//input[@placeholder='DD/MM/AAAA']`, XPath: true},
	{Query: `//input[contains(@placeholder, 'DD')]`, XPath: true},
	{Query: `input.form-control[type=text]`},
	{Query: `form input[type=text]`},
	{Query: `#data-moeda`},
}

// dateFillScript sets the first visible text input and fires the events an
// SPA listens to. Some frameworks only react to native keystrokes, others
// only to programmatic value changes; the primitive does both.
const dateFillScript = `(function(value) {
	var inputs = document.querySelectorAll("form input[type=text], input[placeholder*='DD']");
	for (var i = 0; i < inputs.length; i++) {
		var el = inputs[i];
		if (el.offsetParent === null) { continue; }
		el.value = value;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		el.dispatchEvent(new Event('blur', { bubbles: true }));
		return true;
	}
	return false;
})(%q)`

// reportDateLayout is the wire format of the converter's date field.
const reportDateLayout = "02/01/2006"

// FillDate writes the requested date into the converter's date field, via
// keystrokes when a known input is found and via script in any case.
// A total miss is reported so the strategy can log it, but callers treat it
// as non-fatal: the page then quotes its own default date.
func (b *Browser) FillDate(ctx context.Context, day time.Time) error {
	value := day.Format(reportDateLayout)

	typed := false
	for _, l := range dateInputLocators {
		attempt, cancel := context.WithTimeout(ctx, probeTimeout)
		err := chromedp.Run(attempt,
			chromedp.WaitVisible(l.Query, l.opt()),
			chromedp.Clear(l.Query, l.opt()),
			chromedp.SendKeys(l.Query, value, l.opt()),
		)
		cancel()
		if err == nil {
			typed = true
			break
		}
	}

	var scripted bool
	script, cancel := context.WithTimeout(ctx, probeTimeout)
	err := chromedp.Run(script, chromedp.Evaluate(fmt.Sprintf(dateFillScript, value), &scripted))
	cancel()

	if !typed && (err != nil || !scripted) {
		return fmt.Errorf("no date field accepted %v", value)
	}
	return nil
}

var submitLocators = []Locator{
	{Query: `//button[contains(normalize-space(.), 'Converter')]`, XPath: true},
	{Query: `button[type=submit]`},
	{Query: `button.btn-primary`},
	{Query: `form button`},
}

const submitClickScript = `(function() {
	var buttons = document.getElementsByTagName('button');
	for (var i = 0; i < buttons.length; i++) {
		var el = buttons[i];
		if (el.textContent.indexOf('Converter') >= 0 ||
			el.classList.contains('btn-primary') ||
			el.type === 'submit') {
			el.click();
			return true;
		}
	}
	return false;
})()`

// ClickSubmit fires the conversion. All locators plus the script fallback
// failing means the form cannot be driven at all.
func (b *Browser) ClickSubmit(ctx context.Context) error {
	if b.clickFirstVisible(ctx, submitLocators) {
		return nil
	}
	var clicked bool
	attempt, cancel := context.WithTimeout(ctx, probeTimeout)
	err := chromedp.Run(attempt, chromedp.Evaluate(submitClickScript, &clicked))
	cancel()
	if err == nil && clicked {
		return nil
	}
	return SubmitError{Candidates: len(submitLocators)}
}
