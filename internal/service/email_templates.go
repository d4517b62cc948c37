package service

import "fmt"

func welcomeEmailTemplate(name, username, startURL, appName string) (string, string) {
	if name == "" {
		name = username
	}

	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi %s,

Your account is ready. You signed up as %s.

Start collecting inspiration: %s

Everything you save is private until you decide to share it.

Best,
The %s Team`, name, username, startURL, appName)

	return subject, body
}

func accountDeletedEmailTemplate(name, appName string) (string, string) {
	if name == "" {
		name = "there"
	}

	subject := fmt.Sprintf("Your %s account has been deleted", appName)
	body := fmt.Sprintf(`Hi %s,

Your %s account and all your saved items have been deleted.

Public categories that still hold other people's inspiration were handed over to the %s admin so that nobody loses their items.

Best,
The %s Team`, name, appName, appName, appName)

	return subject, body
}
