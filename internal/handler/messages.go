package handler

// Replies shown to customers and the administrator. Texts sent with
// Markdown set are MarkdownV2 and escape their own punctuation.
const (
	msgChooseCategory     = "Оберіть категорію товарів або фільтр за ціною:"
	msgCatalogUnavailable = "⚠️ Каталог тимчасово недоступний. Спробуйте пізніше або скористайтеся фільтром за ціною."
	msgTryLater           = "⚠️ Сервіс тимчасово недоступний. Спробуйте пізніше."
	msgNoProducts         = "У цій категорії поки немає товарів."
	msgNoProductsInRange  = "Немає товарів у цьому ціновому діапазоні."

	btnCart      = "🛒 Кошик"
	btnAddToCart = "🛒 Додати до кошика"

	msgAdded              = "Додано до кошика ✅"
	msgProductUnavailable = "Товар більше недоступний ❌"
	msgUnknownAction      = "Ця кнопка застаріла. Надішліть /start"

	msgCartEmpty   = "Ваш кошик порожній 🧺"
	msgCartHeader  = "🧾 *Ваше замовлення:*"
	msgCartTotal   = "💰 *Разом:* %s"
	msgOrderPrompt = "✍️ Введіть ім’я, телефон і Нову Пошту через крапку з комою: \n`Ім’я; Телефон; Відділення`\n\nЩоб повернутися до покупок, надішліть /cancel"

	msgMalformedOrder = "⚠️ Введіть *Ім’я; Телефон; Відділення Нової Пошти* в одному рядку, розділяючи крапкою з комою\\."
	msgOrderAccepted  = "✅ Дякуємо\\! Ваше замовлення прийнято\\.\nНомер замовлення: `%s`"
	msgOrderFailed    = "⚠️ Не вдалося зберегти замовлення. Надішліть дані ще раз трохи пізніше."

	msgCheckoutCancelled = "Оформлення скасовано. Товари залишилися в кошику 🛒"
	msgNothingToCancel   = "Немає активного оформлення замовлення."

	msgAdminOrder = "📥 НОВЕ ЗАМОВЛЕННЯ:\n👤 %s\n📞 %s\n🏤 НП: %s\n📦 %d товарів на суму %s\n🆔 %s"
)
