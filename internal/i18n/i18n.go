// Package i18n holds the small message catalog the templates and flash
// messages use. Spanish is the default, matching the business the app was
// built for; English is the fallback pair.
package i18n

import "strings"

const defaultLang = "es"

var catalog = map[string]map[string]string{
	"es": {
		"required":                   "Obligatorio",
		"invalid_credentials":        "Usuario o contraseña incorrectos",
		"product_created":            "Producto creado exitosamente",
		"product_updated":            "Producto actualizado exitosamente",
		"product_deleted":            "Producto eliminado exitosamente",
		"stock_adjusted":             "Stock actualizado exitosamente",
		"stock_unchanged":            "El stock no ha cambiado",
		"movement_recorded":          "Movimiento de stock registrado exitosamente",
		"insufficient_stock":         "No hay stock suficiente",
		"customer_created":           "Cliente creado con éxito",
		"customer_updated":           "Cliente actualizado con éxito",
		"customer_deleted":           "Cliente eliminado con éxito",
		"customer_has_sales":         "No se puede borrar el cliente porque tiene ventas asociadas",
		"sale_recorded":              "Venta registrada exitosamente",
		"sale_needs_items":           "La venta debe contener al menos un producto",
		"sale_deleted":               "Venta eliminada y stock restaurado",
		"low_stock":                  "Stock bajo",
		"welcome":                    "Bienvenido",
		"invalid_quantity":           "Cantidad inválida",
		"unknown_product":            "Producto no encontrado",
		"unknown_customer":           "Cliente no encontrado",
		"unknown_sale":               "Venta no encontrada",
		"invalid_movement_kind":      "Tipo de movimiento inválido",
		"concurrent_update_conflict": "Otro usuario modificó el stock, inténtalo de nuevo",
		"internal_error":             "Error interno",
	},
	"en": {
		"required":                   "Required",
		"invalid_credentials":        "Invalid username or password",
		"product_created":            "Product created successfully",
		"product_updated":            "Product updated successfully",
		"product_deleted":            "Product deleted successfully",
		"stock_adjusted":             "Stock updated successfully",
		"stock_unchanged":            "Stock did not change",
		"movement_recorded":          "Stock movement recorded successfully",
		"insufficient_stock":         "Not enough stock available",
		"customer_created":           "Customer created successfully",
		"customer_updated":           "Customer updated successfully",
		"customer_deleted":           "Customer deleted successfully",
		"customer_has_sales":         "Cannot delete the customer: sales reference it",
		"sale_recorded":              "Sale recorded successfully",
		"sale_needs_items":           "A sale must contain at least one product",
		"sale_deleted":               "Sale deleted and stock restored",
		"low_stock":                  "Low stock",
		"welcome":                    "Welcome",
		"invalid_quantity":           "Invalid quantity",
		"unknown_product":            "Product not found",
		"unknown_customer":           "Customer not found",
		"unknown_sale":               "Sale not found",
		"invalid_movement_kind":      "Invalid movement kind",
		"concurrent_update_conflict": "Someone else changed the stock, please retry",
		"internal_error":             "Internal error",
	},
}

// DetectLanguage maps an Accept-Language header to a supported language,
// defaulting to Spanish.
func DetectLanguage(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	if strings.HasPrefix(h, "en") {
		return "en"
	}
	return defaultLang
}

// T translates a message code. Unknown languages fall back to Spanish;
// unknown codes fall back to the code itself so missing entries are visible
// instead of blank.
func T(lang, code string) string {
	msgs, ok := catalog[lang]
	if !ok {
		msgs = catalog[defaultLang]
	}
	if msg, ok := msgs[code]; ok {
		return msg
	}
	if msg, ok := catalog[defaultLang][code]; ok {
		return msg
	}
	return code
}
