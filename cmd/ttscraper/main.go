// Command ttscraper archives the posts of TikTok accounts.
package main

func main() {
	Execute()
}
