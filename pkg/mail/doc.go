// Package mail dispatches confirmation codes out of band.
//
// Mailer has two implementations: SMTPMailer for real delivery and LogMailer,
// which writes each message to the structured log for development.
//
//	var m mail.Mailer = mail.NewSMTPMailer(mail.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"})
//	err := m.Send(ctx, mail.Message{To: user.Email, Subject: "Confirmation code", Body: body})
//
// Callers decide whether a failed send matters; enrollment logs and continues.
package mail
