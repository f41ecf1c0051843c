package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"google.golang.org/api/option"

	"tripsplit-backend/config"
	"tripsplit-backend/database"
	"tripsplit-backend/models"
)

type NotificationService struct {
	messaging *messaging.Client
}

var notifService *NotificationService

// InitNotificationService sets up the Firebase messaging client. Push is
// optional: without credentials the service still sends emails.
func InitNotificationService() {
	notifService = &NotificationService{}

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(config.AppConfig.FirebaseCredPath))
	if err != nil {
		log.Println("Firebase not configured, push notifications disabled:", err)
		return
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		log.Println("Firebase messaging unavailable, push notifications disabled:", err)
		return
	}
	notifService.messaging = client
	log.Println("Firebase messaging initialized")
}

func GetNotificationService() *NotificationService {
	if notifService == nil {
		notifService = &NotificationService{}
	}
	return notifService
}

func (ns *NotificationService) sendPush(fcmToken string, title string, body string, data map[string]string) {
	if ns.messaging == nil || fcmToken == "" {
		return
	}

	msg := &messaging.Message{
		Token: fcmToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := ns.messaging.Send(context.Background(), msg); err != nil {
		log.Printf("Push send failed: %v", err)
	}
}

func (ns *NotificationService) sendEmail(toEmail string, toName string, subject string, htmlBody string) {
	if config.AppConfig.SendGridAPIKey == "" {
		log.Printf("SendGrid API key not set, skipping email to %s", toEmail)
		return
	}

	from := mail.NewEmail(config.AppConfig.AppName, config.AppConfig.SendGridFrom)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, "", htmlBody)

	client := sendgrid.NewSendClient(config.AppConfig.SendGridAPIKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Printf("Email send failed: %v", err)
		return
	}
	if resp.StatusCode >= 300 {
		log.Printf("SendGrid returned status %d for %s", resp.StatusCode, toEmail)
	}
}

// linkedUser resolves a trip participant to their linked account, if any.
// Name-only members (children, offline guests) have none.
func linkedUser(participant models.TripParticipant) (models.User, bool) {
	if participant.UserID == nil {
		return models.User{}, false
	}
	var user models.User
	if err := database.DB.First(&user, *participant.UserID).Error; err != nil {
		return models.User{}, false
	}
	return user, true
}

// NotifyExpenseAdded sends push + email to every debtor with a linked account.
func (ns *NotificationService) NotifyExpenseAdded(expense models.Expense, splits []models.ExpenseSplit, payerName string, trip models.Trip) {
	for _, split := range splits {
		if split.ParticipantID == expense.PaidBy {
			continue // Don't notify the payer
		}

		var participant models.TripParticipant
		if err := database.DB.First(&participant, split.ParticipantID).Error; err != nil {
			continue
		}
		user, ok := linkedUser(participant)
		if !ok {
			continue
		}

		title := fmt.Sprintf("%s added an expense", payerName)
		body := fmt.Sprintf("You owe %s %.2f for \"%s\" in %s", trip.Currency, split.Amount, expense.Title, trip.Title)

		ns.sendPush(user.FCMToken, title, body, map[string]string{
			"type":       "expense_added",
			"expense_id": expense.ID.String(),
			"trip_id":    expense.TripID.String(),
		})

		htmlBody := buildExpenseEmailHTML(payerName, user.Name, expense.Title, expense.Amount, split.Amount, trip.Currency, trip.Title)
		ns.sendEmail(user.Email, user.Name, fmt.Sprintf("%s added \"%s\" in %s", payerName, expense.Title, trip.Title), htmlBody)
	}
}

// NotifySettlement tells the creditor they were paid.
func (ns *NotificationService) NotifySettlement(trip models.Trip, payerName string, payee models.TripParticipant, amount float64) {
	user, ok := linkedUser(payee)
	if !ok {
		return
	}

	title := fmt.Sprintf("%s paid you", payerName)
	body := fmt.Sprintf("%s paid you %s %.2f in %s", payerName, trip.Currency, amount, trip.Title)

	ns.sendPush(user.FCMToken, title, body, map[string]string{
		"type":    "settlement",
		"trip_id": trip.ID.String(),
	})

	htmlBody := buildSettlementEmailHTML(payerName, user.Name, amount, trip.Currency, trip.Title)
	ns.sendEmail(user.Email, user.Name, fmt.Sprintf("%s settled up with you in %s", payerName, trip.Title), htmlBody)
}

// NotifyMemberAdded greets a newly added member.
func (ns *NotificationService) NotifyMemberAdded(trip models.Trip, adderName string, member models.TripParticipant) {
	user, ok := linkedUser(member)
	if !ok {
		return
	}

	title := fmt.Sprintf("You were added to \"%s\"", trip.Title)
	body := fmt.Sprintf("%s added you to the trip \"%s\"", adderName, trip.Title)

	ns.sendPush(user.FCMToken, title, body, map[string]string{
		"type":    "member_added",
		"trip_id": trip.ID.String(),
	})

	ns.sendEmail(user.Email, user.Name, title, buildMemberAddedEmailHTML(adderName, user.Name, trip.Title))
}

// NotifyInvitation emails a non-registered invitee.
func (ns *NotificationService) NotifyInvitation(email string, inviterName string, tripTitle string) {
	subject := fmt.Sprintf("%s invited you to join \"%s\" on %s", inviterName, tripTitle, config.AppConfig.AppName)
	ns.sendEmail(email, "", subject, buildInvitationEmailHTML(inviterName, tripTitle))
}

// ============================================================
// EMAIL TEMPLATES
// ============================================================

func buildExpenseEmailHTML(payerName, userName, title string, totalAmount, owedAmount float64, currency, tripTitle string) string {
	tmpl := `
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: white; border-radius: 12px; padding: 32px;">
		<h2 style="color: #2563eb; margin-top: 0;">New Expense Added</h2>
		<p>Hi <strong>{{.UserName}}</strong>,</p>
		<p><strong>{{.PayerName}}</strong> added a new expense in <strong>{{.TripTitle}}</strong>:</p>
		<div style="background: #f8f9fa; border-radius: 8px; padding: 16px; margin: 16px 0;">
			<p style="margin: 4px 0; font-size: 18px;"><strong>{{.Title}}</strong></p>
			<p style="margin: 4px 0; color: #666;">Total: {{.Currency}} {{printf "%.2f" .TotalAmount}}</p>
			<p style="margin: 4px 0; color: #e53e3e; font-size: 18px;"><strong>Your share: {{.Currency}} {{printf "%.2f" .OwedAmount}}</strong></p>
		</div>
	</div>
</body>
</html>`

	t, err := template.New("expense").Parse(tmpl)
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	t.Execute(&buf, map[string]interface{}{
		"UserName":    userName,
		"PayerName":   payerName,
		"TripTitle":   tripTitle,
		"Title":       title,
		"Currency":    currency,
		"TotalAmount": totalAmount,
		"OwedAmount":  owedAmount,
	})
	return buf.String()
}

func buildSettlementEmailHTML(payerName, payeeName string, amount float64, currency, tripTitle string) string {
	tmpl := `
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: white; border-radius: 12px; padding: 32px;">
		<h2 style="color: #16a34a; margin-top: 0;">Payment Received</h2>
		<p>Hi <strong>{{.PayeeName}}</strong>,</p>
		<p><strong>{{.PayerName}}</strong> paid you <strong>{{.Currency}} {{printf "%.2f" .Amount}}</strong> in <strong>{{.TripTitle}}</strong>.</p>
	</div>
</body>
</html>`

	t, err := template.New("settlement").Parse(tmpl)
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	t.Execute(&buf, map[string]interface{}{
		"PayeeName": payeeName,
		"PayerName": payerName,
		"Currency":  currency,
		"Amount":    amount,
		"TripTitle": tripTitle,
	})
	return buf.String()
}

func buildMemberAddedEmailHTML(adderName, memberName, tripTitle string) string {
	return fmt.Sprintf(`<p>Hi <strong>%s</strong>,</p><p><strong>%s</strong> added you to the trip <strong>%s</strong>. Open the app to see the expenses.</p>`,
		template.HTMLEscapeString(memberName), template.HTMLEscapeString(adderName), template.HTMLEscapeString(tripTitle))
}

func buildInvitationEmailHTML(inviterName, tripTitle string) string {
	return fmt.Sprintf(`<p><strong>%s</strong> invited you to join the trip <strong>%s</strong> on %s.</p><p><a href="%s">Create an account</a> to see and split expenses.</p>`,
		template.HTMLEscapeString(inviterName), template.HTMLEscapeString(tripTitle),
		template.HTMLEscapeString(config.AppConfig.AppName), config.AppConfig.AppURL)
}
