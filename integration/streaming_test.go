package integration

import (
	"context"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/killallgit/usechat/pkg/chat"
	"github.com/killallgit/usechat/pkg/controllers"
	"github.com/killallgit/usechat/pkg/stream/providers"
	"github.com/killallgit/usechat/pkg/tokens"
)

var _ = Describe("Streaming against Ollama", func() {
	var (
		controller *controllers.ChatController
		testModel  string
	)

	BeforeEach(func() {
		// Skip integration tests unless explicitly enabled
		if os.Getenv("INTEGRATION_TEST") != "true" {
			Skip("Integration tests skipped. Set INTEGRATION_TEST=true to run.")
		}

		var url string
		url, testModel = ollamaSettings()
		transport, err := providers.NewOllama(url, testModel,
			providers.WithTokenCounter(tokens.NewEstimator()),
		)
		if err != nil {
			Skip("Failed to create Ollama transport: " + err.Error())
		}
		controller = controllers.NewChatController(transport)
	})

	It("should stream an answer progressively", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		var (
			mu       sync.Mutex
			updates  int
			statuses []controllers.Status
		)
		unsubscribe := controller.Subscribe(func(st controllers.State) {
			mu.Lock()
			defer mu.Unlock()
			updates++
			statuses = append(statuses, st.Status)
		})
		defer unsubscribe()

		err := controller.SubmitMessage(ctx, controllers.TextInput("Write two sentences about a robot learning to paint."))
		if err != nil {
			Skip("Ollama server not available or model not found: " + err.Error())
		}

		msgs := controller.Messages()
		Expect(msgs).To(HaveLen(2))
		Expect(msgs[1].Role).To(Equal(chat.RoleAssistant))
		Expect(msgs[1].Parts).ToNot(BeEmpty())
		Expect(controller.Status()).To(Equal(controllers.StatusIdle))

		mu.Lock()
		defer mu.Unlock()
		Expect(updates).To(BeNumerically(">", 2), "expected intermediate states")
		Expect(statuses[0]).To(Equal(controllers.StatusLoading))
		GinkgoWriter.Printf("received %d updates, answer: %s\n", updates, msgs[1].Content)
	})

	It("should keep partial output when stopped", func() {
		ctx := context.Background()
		done := make(chan error, 1)
		go func() {
			done <- controller.SubmitMessage(ctx, controllers.TextInput("Count slowly from one to one hundred in words."))
		}()

		Eventually(controller.Status).Should(Equal(controllers.StatusLoading))
		time.Sleep(500 * time.Millisecond)
		controller.Stop()

		Expect(controller.Status()).To(Equal(controllers.StatusIdle))
		Eventually(done, 60*time.Second).Should(Receive(BeNil()))
	})
})
