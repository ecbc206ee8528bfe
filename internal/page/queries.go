package page

import "fmt"

// Queries are evaluated inside the page and return JSON-serialisable values.
// They encode NOSPOS document structure; the drivers only ever see the
// decoded result.
const (
	// QueryReportTable returns the valuation report table's outer HTML, or
	// null when no table rendered.
	QueryReportTable = `() => {
		const t = document.querySelector("#report-table, table.table-valuation");
		return t ? t.outerHTML : null;
	}`

	// QueryBranchName reads the active branch from the navbar, the same spot
	// the legacy exports took it from.
	QueryBranchName = `() => {
		const el = document.querySelector("#navbar-mobile-collapse ul.action-links li:first-child a span");
		return el ? el.textContent.trim() : "Unknown Branch";
	}`

	// QueryRefundCards returns the amount and quantity hint text of every
	// refund-line card on a refund page, in render order.
	QueryRefundCards = `() => {
		return Array.from(document.querySelectorAll(".refund-card")).map(card => {
			const clean = (sel) => {
				const el = card.querySelector(sel);
				return el ? el.textContent.trim() : "";
			};
			return {
				amount: clean(".refund-paid-hint"),
				quantity: clean(".refund-returned-hint")
			};
		});
	}`
)

// Selectors for the cart/checkout workflow.
const (
	SelNewSaleButton    = "a.btn-new-sale"
	SelCartRemoveButton = "#cart-lines button.btn-remove-line"
	SelSearchInput      = "#product-search input[name='barserial']"
	SelSearchSubmit     = "#product-search button[type='submit']"
	SelPricingSubmit    = "#pricing-form button[type='submit']"
	SelPaymentMethod    = "#payment-methods input[value='CARD']"
	SelPaymentAmount    = "#payment-form input[name='amount']"
	SelFinalizeButton   = "#payment-form button.btn-finalize"
)

// Pricing form fields are indexed by discovery order of distinct barserials,
// zero-based.
func SelQuantityField(i int) string {
	return fmt.Sprintf("#pricing-form input[name='quantity[%d]']", i)
}

func SelUnitPriceField(i int) string {
	return fmt.Sprintf("#pricing-form input[name='price[%d]']", i)
}

func SelDiscountReasonField(i int) string {
	return fmt.Sprintf("#pricing-form input[name='discount_reason[%d]']", i)
}

// Refund form fields, indexed by card position on the refund page.
func SelRefundAmountField(i int) string {
	return fmt.Sprintf(".refund-card:nth-of-type(%d) input[name='refund_amount']", i+1)
}

func SelRefundMethodOption(i int) string {
	return fmt.Sprintf(".refund-card:nth-of-type(%d) input[value='CARD_REFUND']", i+1)
}

func SelReturnQuantityField(i int) string {
	return fmt.Sprintf(".refund-card:nth-of-type(%d) input[name='return_quantity']", i+1)
}

func SelFaultyQuantityField(i int) string {
	return fmt.Sprintf(".refund-card:nth-of-type(%d) input[name='faulty_quantity']", i+1)
}

func SelRefundReasonField(i int) string {
	return fmt.Sprintf(".refund-card:nth-of-type(%d) input[name='reason']", i+1)
}

func SelRefundSubmit(i int) string {
	return fmt.Sprintf(".refund-card:nth-of-type(%d) button[type='submit']", i+1)
}
