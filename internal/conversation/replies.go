package conversation

import (
	"fmt"
	"strings"
	"time"
)

// replyTimeLayout renders timestamps the way they were typed, 12-hour clock.
const replyTimeLayout = "02/01 a las 03:04 PM"

func welcomeReply(clinicName string, services []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✨ Hola, bienvenida al %s ✨\n\n", clinicName)
	b.WriteString("Por favor, selecciona el servicio que deseas agendar:\n")
	for i, service := range services {
		fmt.Fprintf(&b, "%d️⃣ %s\n", i+1, service)
	}
	b.WriteString("\nResponde con el número de la opción 😉")

	return b.String()
}

func invalidSelectionReply(count int) string {
	options := make([]string, count)
	for i := range options {
		options[i] = fmt.Sprintf("%d", i+1)
	}

	var choices string
	switch count {
	case 0:
		choices = ""
	case 1:
		choices = options[0]
	default:
		choices = strings.Join(options[:count-1], ", ") + " o " + options[count-1]
	}

	return fmt.Sprintf("Ups... no entendí tu selección 😅\nPor favor responde con *%s*.", choices)
}

func serviceSelectedReply(service string) string {
	return fmt.Sprintf(
		"Perfecto, agendaremos tu consulta de *%s* 💉💋\n¿Tienes una fecha y hora tentativas? Escríbemela así:\n📅 *25/07 a las 10:30am*",
		service,
	)
}

func availabilityReply(slots []string) string {
	var b strings.Builder
	b.WriteString("📆 Aquí tienes horarios sugeridos:")
	for _, slot := range slots {
		b.WriteString("\n")
		b.WriteString(slot)
	}

	return b.String()
}

func invalidFormatReply() string {
	return "Formato inválido 😕. Usa: *25/07 a las 10:30am*"
}

func confirmPromptReply(service string, at time.Time) string {
	return fmt.Sprintf(
		"📌 ¿Confirmas tu cita de *%s* para el *%s*?\nResponde *sí* para confirmar o *no* para cambiar la hora 💋",
		service, at.Format(replyTimeLayout),
	)
}

func confirmedReply(service string, at time.Time) string {
	return fmt.Sprintf(
		"🎉 ¡Cita confirmada para *%s* el %s!\nTe esperamos con mucho cariño 💉💖",
		service, at.Format(replyTimeLayout),
	)
}

func slotTakenReply() string {
	return "💔 Lo siento, ese horario ya está reservado.\n¿Puedes darme otra fecha y hora tentativas?"
}

func changeTimeReply() string {
	return "Entiendo, amor. Entonces dime otra fecha y hora que te convenga 🕒"
}

func confirmRepromptReply() string {
	return "Responde con *sí* para confirmar o *no* para cambiar la hora, mi cielo 😘"
}

func surveyThanksReply() string {
	return "✨ Gracias por tu valoración 💖 ¡Nos ayuda a mejorar!"
}

func surveyRangeReply() string {
	return "Responde con un número del 1 al 5, por favor 💋"
}

func surveyNonNumericReply() string {
	return "Responde solo con un número del 1 al 5 🌟"
}

func restartReply() string {
	return "Escribe *hola* para comenzar una nueva cita 🩺✨"
}
