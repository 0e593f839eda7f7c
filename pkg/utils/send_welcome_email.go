package utils

import (
	"fmt"
	"time"
)

func SendWelcomeEmail(to, username string) error {
	subject := fmt.Sprintf("🎉 Welcome to chainsplit, %s!", username)

	body := fmt.Sprintf(`
	<!DOCTYPE html>
	<html lang="en">
	<head>
		<meta charset="UTF-8" />
		<meta name="viewport" content="width=device-width, initial-scale=1.0" />
		<title>Welcome to chainsplit</title>

		<!-- Google Font: Poppins -->
		<link href="https://fonts.googleapis.com/css2?family=Poppins:wght@400;500;600;700&display=swap" rel="stylesheet">
		<style>
			body {
				font-family: 'Poppins', sans-serif;
				background-color: #f9fbfa;
				margin: 0;
				padding: 0;
			}
			.container {
				max-width: 650px;
				margin: 40px auto;
				background: #ffffff;
				border-radius: 18px;
				box-shadow: 0 10px 30px rgba(0, 0, 0, 0.08);
				overflow: hidden;
				border-top: 6px solid #00795f;
				position: relative;
			}
			.header {
				background-color: #00795f;
				color: #ffffff;
				text-align: center;
				padding: 40px 20px 20px;
				position: relative;
			}
			.header h1 {
				margin: 0;
				font-size: 26px;
				font-weight: 700;
				letter-spacing: 0.3px;
			}
			.content {
				padding: 35px 40px;
				color: #333333;
			}
			.greeting {
				font-size: 18px;
				font-weight: 600;
				margin-bottom: 12px;
			}
			.message {
				font-size: 15.5px;
				line-height: 1.9;
				color: #444444;
				margin-bottom: 16px;
				letter-spacing: 0.2px;
			}
			.highlight {
				color: #00795f;
				font-weight: 600;
			}
			ul {
				padding-left: 22px;
				margin-top: 8px;
				margin-bottom: 16px;
			}
			ul li {
				margin-bottom: 8px;
				font-size: 15px;
				color: #555555;
				line-height: 1.7;
			}
			.footer {
				background: #f0f8f4;
				text-align: center;
				padding: 25px;
				font-size: 13px;
				color: #666666;
				border-top: 1px solid #e5e5e5;
				letter-spacing: 0.3px;
			}
			.brand {
				color: #00795f;
				font-weight: 600;
			}
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>Welcome to chainsplit 💸</h1>
			</div>

			<div class="content">
				<p class="greeting">Hey %s 👋,</p>

				<p class="message">
					We’re <span class="highlight">thrilled</span> to welcome you to <span class="highlight">chainsplit</span> — shared bills tracked on a group ledger and settled in stablecoin, with zero spreadsheet drama.
				</p>

				<p class="message">
					Your wallet is live and tied to your account. Create a group with your friends’ wallet addresses, log your bills as you go, and settle up whenever the group is ready.
				</p>

				<p class="message">
					✨ <b>Here’s what you can do with chainsplit:</b>
				</p>
				<ul>
					<li>🧾 Log bills with equal or custom splits — the ledger nets everything out.</li>
					<li>💰 Trigger a settlement: creditors approve, debtors fund, everyone gets paid at once.</li>
					<li>🎲 Feeling lucky? Propose a gamble and let one unanimous draw swallow all the debts.</li>
					<li>📊 Check who owes whom in any of your groups, any time.</li>
				</ul>

				<p class="message">
					We built chainsplit because we believe <b>money shouldn’t complicate friendships</b>.
					Split the bill, settle the ledger, and get back to dinner.
				</p>

				<p class="message" style="text-align:center;">
					Need help getting started? Just reply to this email — our friendly support team is always happy to help 💚
				</p>
			</div>

			<div class="footer">
				&copy; %d <span class="brand">chainsplit</span> — Shared Bills. Settled On-Chain.
			</div>
		</div>
	</body>
	</html>
	`, username, time.Now().Year())

	return SendEmail(to, subject, body)
}
